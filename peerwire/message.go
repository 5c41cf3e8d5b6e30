// Package peerwire implements the BitTorrent peer wire protocol: the
// 68-byte handshake and the length-prefixed message framing described in
// spec.md §4.4, plus the per-peer connection state machine of §4.5.
package peerwire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// --------------------------------------------------------------------------------------------- //

// ErrUnknownMessage is returned when a message carries an id this client
// does not recognise.
var ErrUnknownMessage = errors.New("peerwire: unknown message id")

// ErrProtocol covers an unexpected message id or a malformed payload once
// a connection is past the handshake.
var ErrProtocol = errors.New("peerwire: protocol error")

// BlockSize is the fixed size of a requested block, except possibly the
// last block of a piece.
const BlockSize = 16 * 1024

// --------------------------------------------------------------------------------------------- //

// MessageID identifies the kind of a peer wire message.
type MessageID uint8

const (
	MsgChoke         MessageID = 0
	MsgUnchoke       MessageID = 1
	MsgInterested    MessageID = 2
	MsgNotInterested MessageID = 3
	MsgHave          MessageID = 4
	MsgBitfield      MessageID = 5
	MsgRequest       MessageID = 6
	MsgPiece         MessageID = 7
	MsgCancel        MessageID = 8
)

// --------------------------------------------------------------------------------------------- //

func (id MessageID) String() string {
	switch id {
	case MsgChoke:
		return "Choke"
	case MsgUnchoke:
		return "Unchoke"
	case MsgInterested:
		return "Interested"
	case MsgNotInterested:
		return "NotInterested"
	case MsgHave:
		return "Have"
	case MsgBitfield:
		return "Bitfield"
	case MsgRequest:
		return "Request"
	case MsgPiece:
		return "Piece"
	case MsgCancel:
		return "Cancel"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(id))
	}
}

// --------------------------------------------------------------------------------------------- //

// Message is a single peer wire message: an id and its opaque payload. A
// keep-alive (zero-length) message is represented by a nil *Message.
type Message struct {
	ID      MessageID
	Payload []byte
}

// --------------------------------------------------------------------------------------------- //

// knownMessageIDs are the ids this client recognises; anything else fails
// with ErrUnknownMessage.
var knownMessageIDs = map[MessageID]bool{
	MsgChoke:         true,
	MsgUnchoke:       true,
	MsgInterested:    true,
	MsgNotInterested: true,
	MsgHave:          true,
	MsgBitfield:      true,
	MsgRequest:       true,
	MsgPiece:         true,
	MsgCancel:        true,
}

// --------------------------------------------------------------------------------------------- //

// Serialize encodes a message (or keep-alive, for msg == nil) with its
// 4-byte big-endian length prefix.
func (m *Message) Serialize() []byte {
	if m == nil {
		return make([]byte, 4)
	}

	length := uint32(len(m.Payload) + 1)
	buf := make([]byte, 4+length)
	binary.BigEndian.PutUint32(buf[0:4], length)
	buf[4] = byte(m.ID)
	copy(buf[5:], m.Payload)

	return buf
}

// --------------------------------------------------------------------------------------------- //

/*
ReadMessage reads one length-prefixed message from r. A zero-length
keep-alive is tolerated and reported as (nil, nil). An id outside
knownMessageIDs fails with ErrUnknownMessage.
*/
func ReadMessage(r io.Reader) (*Message, error) {
	var lengthBuf [4]byte

	if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
		return nil, fmt.Errorf("peerwire: reading message length: %v", err)
	}

	length := binary.BigEndian.Uint32(lengthBuf[:])
	if length == 0 {
		return nil, nil
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("peerwire: reading message body: %v", err)
	}

	id := MessageID(body[0])
	if !knownMessageIDs[id] {
		return nil, fmt.Errorf("peerwire: id %d: %w", id, ErrUnknownMessage)
	}

	return &Message{ID: id, Payload: body[1:]}, nil
}

// --------------------------------------------------------------------------------------------- //

// WriteMessage writes a single serialized message to w.
func WriteMessage(w io.Writer, m *Message) error {
	_, err := w.Write(m.Serialize())
	if err != nil {
		return fmt.Errorf("peerwire: writing message: %v", err)
	}

	return nil
}

// --------------------------------------------------------------------------------------------- //

// FormatRequest builds a Request message for the given block.
func FormatRequest(index, begin, length int) *Message {
	payload := make([]byte, 12)
	binary.BigEndian.PutUint32(payload[0:4], uint32(index))
	binary.BigEndian.PutUint32(payload[4:8], uint32(begin))
	binary.BigEndian.PutUint32(payload[8:12], uint32(length))

	return &Message{ID: MsgRequest, Payload: payload}
}

// --------------------------------------------------------------------------------------------- //

// ParsedPiece is the decoded payload of a Piece message.
type ParsedPiece struct {
	Index int
	Begin int
	Block []byte
}

// --------------------------------------------------------------------------------------------- //

// ParsePiece validates and decodes a Piece message's payload.
func ParsePiece(m *Message) (ParsedPiece, error) {
	if m == nil || m.ID != MsgPiece {
		return ParsedPiece{}, fmt.Errorf("peerwire: expected Piece message: %w", ErrProtocol)
	}

	if len(m.Payload) < 8 {
		return ParsedPiece{}, fmt.Errorf("peerwire: piece payload too short (%d bytes): %w", len(m.Payload), ErrProtocol)
	}

	return ParsedPiece{
		Index: int(binary.BigEndian.Uint32(m.Payload[0:4])),
		Begin: int(binary.BigEndian.Uint32(m.Payload[4:8])),
		Block: m.Payload[8:],
	}, nil
}
