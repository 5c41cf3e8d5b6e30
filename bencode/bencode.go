// Package bencode implements the bencoding codec used by BitTorrent
// metainfo files and tracker responses: integers, byte strings, lists
// and ordered dictionaries.
package bencode

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// --------------------------------------------------------------------------------------------- //

// ErrMalformedBencode is returned whenever the decoder cannot make progress:
// truncated input, a non-digit where a digit was expected, a string length
// exceeding the remaining bytes, or an unterminated container.
var ErrMalformedBencode = errors.New("bencode: malformed input")

// --------------------------------------------------------------------------------------------- //

/*
Value is the decoded form of a bencoded byte sequence. It holds exactly one
of the following dynamic types:

  - int64        for an encoded integer (i<digits>e)
  - []byte       for an encoded byte string (<len>:<bytes>)
  - []Value      for an encoded list (l<items>e)
  - *Dict        for an encoded dictionary (d<key><value>...e)

Consumers type-switch on Value the way any sum-type payload is consumed in
Go. Values usually come from Decode; a dictionary can also be built by hand
with NewDict and Set.
*/
type Value = any

// --------------------------------------------------------------------------------------------- //

/*
DictEntry is a single key/value pair of a decoded dictionary. Key order is
preserved in the order the entries were decoded (or, for a hand-built Dict,
the order they were appended) so that Encode can round-trip a dictionary
bit-for-bit.
*/
type DictEntry struct {
	Key   []byte
	Value Value
}

// --------------------------------------------------------------------------------------------- //

/*
Dict is an ordered mapping from byte-string keys to bencoded values.
Bencoded maps are not required to be order-independent: re-encoding must
reproduce the original key order, which is why this is a slice of entries
rather than a Go map.
*/
type Dict struct {
	entries []DictEntry
}

// --------------------------------------------------------------------------------------------- //

// NewDict returns an empty ordered dictionary.
func NewDict() *Dict {
	return &Dict{}
}

// --------------------------------------------------------------------------------------------- //

/*
Set appends or overwrites the value for key, preserving the position of an
existing key and appending new keys at the end.
*/
func (d *Dict) Set(key string, value Value) {
	kb := []byte(key)

	for i := range d.entries {
		if bytes.Equal(d.entries[i].Key, kb) {
			d.entries[i].Value = value
			return
		}
	}

	d.entries = append(d.entries, DictEntry{Key: kb, Value: value})
}

// --------------------------------------------------------------------------------------------- //

// Get looks up key and reports whether it was present.
func (d *Dict) Get(key string) (Value, bool) {
	kb := []byte(key)

	for _, e := range d.entries {
		if bytes.Equal(e.Key, kb) {
			return e.Value, true
		}
	}

	return nil, false
}

// --------------------------------------------------------------------------------------------- //

// Entries returns the dictionary's key/value pairs in encoding order.
func (d *Dict) Entries() []DictEntry {
	return d.entries
}

// --------------------------------------------------------------------------------------------- //

/*
GetString looks up key and asserts the value is a byte string, returning
ErrMalformedBencode if the key is missing or the wrong shape.
*/
func (d *Dict) GetString(key string) ([]byte, error) {
	v, ok := d.Get(key)
	if !ok {
		return nil, fmt.Errorf("bencode: missing key %q: %w", key, ErrMalformedBencode)
	}

	s, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("bencode: key %q is not a string: %w", key, ErrMalformedBencode)
	}

	return s, nil
}

// --------------------------------------------------------------------------------------------- //

/*
GetInt looks up key and asserts the value is an integer, returning
ErrMalformedBencode if the key is missing or the wrong shape.
*/
func (d *Dict) GetInt(key string) (int64, error) {
	v, ok := d.Get(key)
	if !ok {
		return 0, fmt.Errorf("bencode: missing key %q: %w", key, ErrMalformedBencode)
	}

	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("bencode: key %q is not an integer: %w", key, ErrMalformedBencode)
	}

	return n, nil
}

// --------------------------------------------------------------------------------------------- //

/*
Decode parses a single bencoded value starting at offset 0 of data. It
returns the decoded value and the number of bytes consumed; trailing bytes
beyond the decoded value are not an error, matching the single-forward-pass
dispatch described for the torrent-file and tracker-response use cases.
*/
func Decode(data []byte) (Value, int, error) {
	if len(data) == 0 {
		return nil, 0, fmt.Errorf("bencode: empty input: %w", ErrMalformedBencode)
	}

	return decodeValue(data, 0)
}

// --------------------------------------------------------------------------------------------- //

// DecodeFull decodes data and requires that the entire input is consumed.
func DecodeFull(data []byte) (Value, error) {
	v, n, err := Decode(data)
	if err != nil {
		return nil, err
	}

	if n != len(data) {
		return nil, fmt.Errorf("bencode: %d trailing bytes after value: %w", len(data)-n, ErrMalformedBencode)
	}

	return v, nil
}

// --------------------------------------------------------------------------------------------- //

func decodeValue(data []byte, pos int) (Value, int, error) {
	if pos >= len(data) {
		return nil, 0, fmt.Errorf("bencode: truncated input at %d: %w", pos, ErrMalformedBencode)
	}

	switch c := data[pos]; {
	case c == 'i':
		return decodeInt(data, pos)
	case c >= '0' && c <= '9':
		return decodeString(data, pos)
	case c == 'l':
		return decodeList(data, pos)
	case c == 'd':
		return decodeDict(data, pos)
	default:
		return nil, 0, fmt.Errorf("bencode: unexpected byte %q at %d: %w", c, pos, ErrMalformedBencode)
	}
}

// --------------------------------------------------------------------------------------------- //

func decodeInt(data []byte, pos int) (Value, int, error) {
	end := bytes.IndexByte(data[pos:], 'e')
	if end < 0 {
		return nil, 0, fmt.Errorf("bencode: unterminated integer at %d: %w", pos, ErrMalformedBencode)
	}

	end += pos
	digits := data[pos+1 : end]

	if len(digits) == 0 {
		return nil, 0, fmt.Errorf("bencode: empty integer at %d: %w", pos, ErrMalformedBencode)
	}

	n, err := strconv.ParseInt(string(digits), 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("bencode: invalid integer %q at %d: %w", digits, pos, ErrMalformedBencode)
	}

	return n, end + 1, nil
}

// --------------------------------------------------------------------------------------------- //

func decodeString(data []byte, pos int) (Value, int, error) {
	col := bytes.IndexByte(data[pos:], ':')
	if col < 0 {
		return nil, 0, fmt.Errorf("bencode: unterminated string length at %d: %w", pos, ErrMalformedBencode)
	}

	col += pos

	length, err := strconv.Atoi(string(data[pos:col]))
	if err != nil || length < 0 {
		return nil, 0, fmt.Errorf("bencode: invalid string length at %d: %w", pos, ErrMalformedBencode)
	}

	start := col + 1
	end := start + length

	if end > len(data) {
		return nil, 0, fmt.Errorf("bencode: string length %d exceeds remaining bytes at %d: %w", length, pos, ErrMalformedBencode)
	}

	s := make([]byte, length)
	copy(s, data[start:end])

	return s, end, nil
}

// --------------------------------------------------------------------------------------------- //

func decodeList(data []byte, pos int) (Value, int, error) {
	idx := pos + 1
	list := []Value{}

	for {
		if idx >= len(data) {
			return nil, 0, fmt.Errorf("bencode: unterminated list starting at %d: %w", pos, ErrMalformedBencode)
		}

		if data[idx] == 'e' {
			return list, idx + 1, nil
		}

		v, next, err := decodeValue(data, idx)
		if err != nil {
			return nil, 0, err
		}

		list = append(list, v)
		idx = next
	}
}

// --------------------------------------------------------------------------------------------- //

func decodeDict(data []byte, pos int) (Value, int, error) {
	idx := pos + 1
	d := NewDict()

	for {
		if idx >= len(data) {
			return nil, 0, fmt.Errorf("bencode: unterminated dict starting at %d: %w", pos, ErrMalformedBencode)
		}

		if data[idx] == 'e' {
			return d, idx + 1, nil
		}

		keyVal, next, err := decodeValue(data, idx)
		if err != nil {
			return nil, 0, err
		}

		key, ok := keyVal.([]byte)
		if !ok {
			return nil, 0, fmt.Errorf("bencode: dict key at %d is not a string: %w", idx, ErrMalformedBencode)
		}

		idx = next

		val, next, err := decodeValue(data, idx)
		if err != nil {
			return nil, 0, err
		}

		d.entries = append(d.entries, DictEntry{Key: key, Value: val})
		idx = next
	}
}

// --------------------------------------------------------------------------------------------- //

/*
Encode serializes a Value back to its canonical bencoded form. Integers
become i<decimal>e, byte strings become <len>:<bytes>, lists become
l<items>e and dictionaries become d<key><value>...e with keys emitted in
the stored order, so Encode(Decode(b)) == b for any well-formed b produced
by a conforming encoder.
*/
func Encode(v Value) []byte {
	var buf bytes.Buffer
	encodeValue(&buf, v)

	return buf.Bytes()
}

// --------------------------------------------------------------------------------------------- //

func encodeValue(buf *bytes.Buffer, v Value) {
	switch val := v.(type) {
	case int64:
		fmt.Fprintf(buf, "i%de", val)
	case int:
		fmt.Fprintf(buf, "i%de", val)
	case []byte:
		encodeString(buf, val)
	case string:
		encodeString(buf, []byte(val))
	case []Value:
		buf.WriteByte('l')
		for _, item := range val {
			encodeValue(buf, item)
		}
		buf.WriteByte('e')
	case *Dict:
		buf.WriteByte('d')
		for _, e := range val.entries {
			encodeString(buf, e.Key)
			encodeValue(buf, e.Value)
		}
		buf.WriteByte('e')
	default:
		panic(fmt.Sprintf("bencode: cannot encode value of type %T", v))
	}
}

// --------------------------------------------------------------------------------------------- //

func encodeString(buf *bytes.Buffer, s []byte) {
	fmt.Fprintf(buf, "%d:", len(s))
	buf.Write(s)
}

// --------------------------------------------------------------------------------------------- //
