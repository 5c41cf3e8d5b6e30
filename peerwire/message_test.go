package peerwire

import (
	"bytes"
	"errors"
	"testing"
)

func TestMessageSerializeRoundTrip(t *testing.T) {
	m := &Message{ID: MsgRequest, Payload: []byte{0, 0, 0, 1}}

	serialized := m.Serialize()

	got, err := ReadMessage(bytes.NewReader(serialized))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.ID != MsgRequest || !bytes.Equal(got.Payload, m.Payload) {
		t.Errorf("round trip mismatch: got %+v", got)
	}
}

func TestReadMessageKeepAlive(t *testing.T) {
	got, err := ReadMessage(bytes.NewReader([]byte{0, 0, 0, 0}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != nil {
		t.Errorf("expected nil for keep-alive, got %+v", got)
	}
}

func TestReadMessageUnknownID(t *testing.T) {
	// length=1, id=99
	_, err := ReadMessage(bytes.NewReader([]byte{0, 0, 0, 1, 99}))
	if !errors.Is(err, ErrUnknownMessage) {
		t.Fatalf("expected ErrUnknownMessage, got %v", err)
	}
}

func TestFormatRequest(t *testing.T) {
	m := FormatRequest(3, 16384, 16384)

	if m.ID != MsgRequest {
		t.Fatalf("expected MsgRequest, got %v", m.ID)
	}

	if len(m.Payload) != 12 {
		t.Fatalf("expected 12-byte payload, got %d", len(m.Payload))
	}

	index, begin := requestIndexBegin(m)
	if index != 3 || begin != 16384 {
		t.Errorf("unexpected index/begin: %d %d", index, begin)
	}
}

func TestParsePiece(t *testing.T) {
	payload := append([]byte{0, 0, 0, 5, 0, 0, 64, 0}, []byte("hello")...)
	m := &Message{ID: MsgPiece, Payload: payload}

	pp, err := ParsePiece(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if pp.Index != 5 || pp.Begin != 16384 || string(pp.Block) != "hello" {
		t.Errorf("unexpected parsed piece: %+v", pp)
	}
}

func TestParsePieceWrongIDFails(t *testing.T) {
	_, err := ParsePiece(&Message{ID: MsgHave, Payload: []byte{0, 0, 0, 0}})
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected ErrProtocol, got %v", err)
	}
}
