package peerwire

import (
	"bytes"
	"testing"
)

func TestHandshakeSerialize(t *testing.T) {
	infoHash := [20]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}
	peerID := [20]byte{'-', 'G', 'O', '0', '0', '0', '1', '-', '1', '2', '3', '4', '5', '6', '7', '8', '9', '0', '1', '2'}

	h := &Handshake{InfoHash: infoHash, PeerID: peerID}
	got := h.Serialize()

	if len(got) != 68 {
		t.Fatalf("expected 68 bytes, got %d", len(got))
	}

	if got[0] != 19 {
		t.Errorf("expected pstrlen 19, got %d", got[0])
	}

	if string(got[1:20]) != "BitTorrent protocol" {
		t.Errorf("unexpected protocol string: %q", got[1:20])
	}

	if !bytes.Equal(got[28:48], infoHash[:]) {
		t.Errorf("unexpected info hash in serialized handshake")
	}

	if !bytes.Equal(got[48:68], peerID[:]) {
		t.Errorf("unexpected peer id in serialized handshake")
	}
}

func TestReadHandshakeRoundTrip(t *testing.T) {
	infoHash := [20]byte{9, 9, 9}
	peerID := [20]byte{7, 7, 7}

	var buf bytes.Buffer
	if err := SendHandshake(&buf, infoHash, peerID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	h, err := ReadHandshake(&buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if h.InfoHash != infoHash {
		t.Errorf("info hash mismatch: %x != %x", h.InfoHash, infoHash)
	}

	if h.PeerID != peerID {
		t.Errorf("peer id mismatch: %x != %x", h.PeerID, peerID)
	}
}

func TestReadHandshakeShortReadFails(t *testing.T) {
	_, err := ReadHandshake(bytes.NewReader([]byte{19, 'B', 'i', 't'}))
	if err == nil {
		t.Fatal("expected error for short handshake read")
	}
}

func TestReadHandshakeWrongProtocolFails(t *testing.T) {
	buf := make([]byte, handshakeLen)
	buf[0] = 19
	copy(buf[1:20], "NotBitTorrentProto!")

	_, err := ReadHandshake(bytes.NewReader(buf))
	if err == nil {
		t.Fatal("expected error for wrong protocol string")
	}
}

func TestVerifyInfoHash(t *testing.T) {
	want := [20]byte{1}
	h := &Handshake{InfoHash: want}

	if err := VerifyInfoHash(h, want); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	other := [20]byte{2}
	if err := VerifyInfoHash(h, other); err == nil {
		t.Error("expected error for mismatched info hash")
	}
}
