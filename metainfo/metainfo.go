// Package metainfo parses .torrent files into the MetaInfo/MetaInfoFile
// model described by the BitTorrent v1 single-file metainfo format.
package metainfo

import (
	"crypto/sha1"
	"errors"
	"fmt"
	"os"

	"github.com/lvbealr/gorent/bencode"
)

// --------------------------------------------------------------------------------------------- //

// ErrMalformedMetainfo is returned when a required field is missing or has
// the wrong shape in a decoded torrent file.
var ErrMalformedMetainfo = errors.New("metainfo: malformed metainfo")

// PieceHashLength is the length in bytes of a single piece's SHA-1 digest.
const PieceHashLength = 20

// --------------------------------------------------------------------------------------------- //

/*
Info is the `info` sub-dictionary of a torrent: the suggested file name,
total length, the per-piece length, and the ordered SHA-1 digests of each
piece. Only single-file torrents are in scope; a `files` list means the
torrent is a multi-file torrent and is rejected.
*/
type Info struct {
	Name        string
	Length      int64
	PieceLength int64
	PieceHashes [][PieceHashLength]byte

	raw bencode.Value
	hash    [20]byte
	hashSet bool
}

// --------------------------------------------------------------------------------------------- //

/*
Hash returns the SHA-1 of the canonical bencoding of the info dictionary,
memoising the result so repeated calls do not re-hash.
*/
func (i *Info) Hash() [20]byte {
	if i.hashSet {
		return i.hash
	}

	i.hash = sha1.Sum(bencode.Encode(i.raw))
	i.hashSet = true

	return i.hash
}

// --------------------------------------------------------------------------------------------- //

// PieceLengthAt returns the byte length of piece index, accounting for a
// possibly-shorter final piece.
func (i *Info) PieceLengthAt(index int) (int64, error) {
	if index < 0 || index >= len(i.PieceHashes) {
		return 0, fmt.Errorf("metainfo: piece index %d out of range [0,%d): %w", index, len(i.PieceHashes), ErrMalformedMetainfo)
	}

	begin := int64(index) * i.PieceLength
	length := i.PieceLength

	if begin+length > i.Length {
		length = i.Length - begin
	}

	return length, nil
}

// --------------------------------------------------------------------------------------------- //

// MetaInfoFile wraps a parsed Info with its tracker announce URL.
type MetaInfoFile struct {
	Announce string
	Info     Info
}

// --------------------------------------------------------------------------------------------- //

// Load reads and decodes a .torrent file from path.
func Load(path string) (*MetaInfoFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("metainfo: reading %q: %v", path, err)
	}

	return Parse(data)
}

// --------------------------------------------------------------------------------------------- //

// Parse decodes the bencoded bytes of a .torrent file into a MetaInfoFile.
func Parse(data []byte) (*MetaInfoFile, error) {
	root, err := bencode.DecodeFull(data)
	if err != nil {
		return nil, fmt.Errorf("metainfo: decoding torrent file: %v", err)
	}

	rootDict, ok := root.(*bencode.Dict)
	if !ok {
		return nil, fmt.Errorf("metainfo: root value is not a dictionary: %w", ErrMalformedMetainfo)
	}

	announceRaw, err := rootDict.GetString("announce")
	if err != nil {
		return nil, fmt.Errorf("metainfo: %v: %w", err, ErrMalformedMetainfo)
	}

	infoRaw, ok := rootDict.Get("info")
	if !ok {
		return nil, fmt.Errorf("metainfo: missing \"info\" dictionary: %w", ErrMalformedMetainfo)
	}

	infoDict, ok := infoRaw.(*bencode.Dict)
	if !ok {
		return nil, fmt.Errorf("metainfo: \"info\" is not a dictionary: %w", ErrMalformedMetainfo)
	}

	if _, hasFiles := infoDict.Get("files"); hasFiles {
		return nil, fmt.Errorf("metainfo: multi-file torrents are not supported: %w", ErrMalformedMetainfo)
	}

	name, err := infoDict.GetString("name")
	if err != nil {
		return nil, fmt.Errorf("metainfo: %v: %w", err, ErrMalformedMetainfo)
	}

	length, err := infoDict.GetInt("length")
	if err != nil {
		return nil, fmt.Errorf("metainfo: %v: %w", err, ErrMalformedMetainfo)
	}

	pieceLength, err := infoDict.GetInt("piece length")
	if err != nil {
		return nil, fmt.Errorf("metainfo: %v: %w", err, ErrMalformedMetainfo)
	}

	piecesRaw, err := infoDict.GetString("pieces")
	if err != nil {
		return nil, fmt.Errorf("metainfo: %v: %w", err, ErrMalformedMetainfo)
	}

	if len(piecesRaw)%PieceHashLength != 0 {
		return nil, fmt.Errorf("metainfo: pieces length %d is not a multiple of %d: %w", len(piecesRaw), PieceHashLength, ErrMalformedMetainfo)
	}

	numPieces := len(piecesRaw) / PieceHashLength
	hashes := make([][PieceHashLength]byte, numPieces)

	for i := 0; i < numPieces; i++ {
		copy(hashes[i][:], piecesRaw[i*PieceHashLength:(i+1)*PieceHashLength])
	}

	info := Info{
		Name:        string(name),
		Length:      length,
		PieceLength: pieceLength,
		PieceHashes: hashes,
		raw:         infoDict,
	}

	return &MetaInfoFile{
		Announce: string(announceRaw),
		Info:     info,
	}, nil
}
