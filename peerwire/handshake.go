package peerwire

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// --------------------------------------------------------------------------------------------- //

// ErrHandshakeFailed covers a wrong protocol string, a short read, or an
// info-hash mismatch during the initial handshake.
var ErrHandshakeFailed = errors.New("peerwire: handshake failed")

const (
	protocolName   = "BitTorrent protocol"
	handshakeLen   = 49 + len(protocolName)
	reservedLength = 8
)

// --------------------------------------------------------------------------------------------- //

/*
Handshake is the fixed 68-byte BitTorrent handshake:
[pstrlen=19][pstr="BitTorrent protocol"][reserved=8 zero bytes][info_hash=20][peer_id=20].
*/
type Handshake struct {
	InfoHash [20]byte
	PeerID   [20]byte
}

// --------------------------------------------------------------------------------------------- //

// Serialize encodes the handshake to its wire form.
func (h *Handshake) Serialize() []byte {
	buf := make([]byte, handshakeLen)
	cursor := 0

	buf[cursor] = byte(len(protocolName))
	cursor++

	cursor += copy(buf[cursor:], protocolName)
	cursor += reservedLength // reserved bytes are left zero
	cursor += copy(buf[cursor:], h.InfoHash[:])
	copy(buf[cursor:], h.PeerID[:])

	return buf
}

// --------------------------------------------------------------------------------------------- //

// SendHandshake writes a handshake for infoHash/peerID to w.
func SendHandshake(w io.Writer, infoHash, peerID [20]byte) error {
	h := &Handshake{InfoHash: infoHash, PeerID: peerID}

	_, err := w.Write(h.Serialize())
	if err != nil {
		return fmt.Errorf("peerwire: sending handshake: %v: %w", err, ErrHandshakeFailed)
	}

	return nil
}

// --------------------------------------------------------------------------------------------- //

/*
ReadHandshake reads exactly 68 bytes from r, verifies pstrlen/pstr, and
returns the decoded handshake. A short read or wrong protocol string fails
with ErrHandshakeFailed.
*/
func ReadHandshake(r io.Reader) (*Handshake, error) {
	buf := make([]byte, handshakeLen)

	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("peerwire: reading handshake: %v: %w", err, ErrHandshakeFailed)
	}

	pstrlen := int(buf[0])
	if pstrlen != len(protocolName) {
		return nil, fmt.Errorf("peerwire: unexpected pstrlen %d: %w", pstrlen, ErrHandshakeFailed)
	}

	cursor := 1
	if string(buf[cursor:cursor+pstrlen]) != protocolName {
		return nil, fmt.Errorf("peerwire: unexpected protocol string %q: %w", buf[cursor:cursor+pstrlen], ErrHandshakeFailed)
	}

	cursor += pstrlen + reservedLength

	var h Handshake
	copy(h.InfoHash[:], buf[cursor:cursor+20])
	cursor += 20
	copy(h.PeerID[:], buf[cursor:cursor+20])

	return &h, nil
}

// --------------------------------------------------------------------------------------------- //

// VerifyInfoHash reports whether the handshake's info hash matches want.
func VerifyInfoHash(h *Handshake, want [20]byte) error {
	if !bytes.Equal(h.InfoHash[:], want[:]) {
		return fmt.Errorf("peerwire: info hash mismatch: got %x want %x: %w", h.InfoHash, want, ErrHandshakeFailed)
	}

	return nil
}
