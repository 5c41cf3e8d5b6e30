package tracker

import (
	"net"
	"testing"
)

func TestParseCompactPeersTwoAddresses(t *testing.T) {
	raw := []byte{
		192, 168, 1, 1, 0x1A, 0xE1, // 192.168.1.1:6881
		10, 0, 0, 5, 0x1A, 0xE2, // 10.0.0.5:6882
	}

	peers, err := ParseCompactPeers(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(peers) != 2 {
		t.Fatalf("expected 2 peers, got %d", len(peers))
	}

	if !peers[0].IP.Equal(net.IPv4(192, 168, 1, 1)) || peers[0].Port != 6881 {
		t.Errorf("unexpected first peer: %+v", peers[0])
	}

	if !peers[1].IP.Equal(net.IPv4(10, 0, 0, 5)) || peers[1].Port != 6882 {
		t.Errorf("unexpected second peer: %+v", peers[1])
	}
}

func TestParseCompactPeersInvalidLength(t *testing.T) {
	_, err := ParseCompactPeers([]byte{1, 2, 3})
	if err == nil {
		t.Fatal("expected error for invalid compact peers length")
	}
}

func TestAddressString(t *testing.T) {
	a := Address{IP: net.IPv4(127, 0, 0, 1), Port: 6881}
	if a.String() != "127.0.0.1:6881" {
		t.Errorf("unexpected address string: %s", a.String())
	}
}
