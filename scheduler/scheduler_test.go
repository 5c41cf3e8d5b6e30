package scheduler

import (
	"crypto/sha1"
	"encoding/binary"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/lvbealr/gorent/peerwire"
	"github.com/lvbealr/gorent/tracker"
)

// listenOnLoopback starts a one-shot TCP listener on loopback and returns
// its address, so tests can exercise runWorker's real dial path.
func listenOnLoopback(t *testing.T) net.Listener {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listening on loopback: %v", err)
	}

	return l
}

// serveOnePiece accepts a single connection, completes the handshake and
// warm-up, then answers every Request with the matching slice of data.
func serveOnePiece(t *testing.T, l net.Listener, infoHash [20]byte, data []byte) {
	t.Helper()

	conn, err := l.Accept()
	if err != nil {
		t.Logf("fake peer: accept: %v", err)
		return
	}
	defer conn.Close()

	hs, err := peerwire.ReadHandshake(conn)
	if err != nil {
		t.Logf("fake peer: reading handshake: %v", err)
		return
	}

	if err := peerwire.VerifyInfoHash(hs, infoHash); err != nil {
		t.Logf("fake peer: %v", err)
		return
	}

	if err := peerwire.SendHandshake(conn, infoHash, [20]byte{9}); err != nil {
		return
	}

	if err := peerwire.WriteMessage(conn, &peerwire.Message{ID: peerwire.MsgBitfield, Payload: []byte{0xFF}}); err != nil {
		return
	}

	if msg, err := peerwire.ReadMessage(conn); err != nil || msg == nil || msg.ID != peerwire.MsgInterested {
		t.Logf("fake peer: expected Interested, got %+v err=%v", msg, err)
		return
	}

	if err := peerwire.WriteMessage(conn, &peerwire.Message{ID: peerwire.MsgUnchoke}); err != nil {
		return
	}

	for {
		msg, err := peerwire.ReadMessage(conn)
		if err != nil {
			return
		}
		if msg == nil {
			continue
		}
		if msg.ID != peerwire.MsgRequest {
			return
		}

		index := binary.BigEndian.Uint32(msg.Payload[0:4])
		begin := binary.BigEndian.Uint32(msg.Payload[4:8])
		length := binary.BigEndian.Uint32(msg.Payload[8:12])

		payload := make([]byte, 8+length)
		binary.BigEndian.PutUint32(payload[0:4], index)
		binary.BigEndian.PutUint32(payload[4:8], begin)
		copy(payload[8:], data[begin:begin+length])

		if err := peerwire.WriteMessage(conn, &peerwire.Message{ID: peerwire.MsgPiece, Payload: payload}); err != nil {
			return
		}
	}
}

func TestRunDownloadsSinglePieceFromOnePeer(t *testing.T) {
	data := make([]byte, peerwire.BlockSize*2+100)
	for i := range data {
		data[i] = byte(i)
	}

	infoHash := [20]byte{1, 2, 3}
	peerID := [20]byte{4, 5, 6}

	piece := &Piece{Index: 0, Length: int64(len(data)), ExpectedHash: sha1.Sum(data)}

	l := listenOnLoopback(t)
	defer l.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		serveOnePiece(t, l, infoHash, data)
	}()

	addr := mustParseAddr(t, l.Addr().String())

	dir := t.TempDir()
	output := filepath.Join(dir, "out")

	if err := run([]tracker.Address{addr}, infoHash, peerID, []*Piece{piece}, output, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := os.ReadFile(scratchPath(output, 0))
	if err != nil {
		t.Fatalf("reading scratch file: %v", err)
	}

	if string(got) != string(data) {
		t.Error("assembled piece bytes do not match source data")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("fake peer goroutine did not finish")
	}
}

func TestRunFailsWhenNoAddresses(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "out")

	err := run(nil, [20]byte{}, [20]byte{}, []*Piece{{Index: 0, Length: 1}}, output, nil)
	if err == nil {
		t.Fatal("expected error for empty address list")
	}
}

func TestRunFailsWhenPeerRefusesConnection(t *testing.T) {
	l := listenOnLoopback(t)
	addr := mustParseAddr(t, l.Addr().String())
	l.Close() // nothing will ever accept this connection

	dir := t.TempDir()
	output := filepath.Join(dir, "out")

	piece := &Piece{Index: 0, Length: 16, ExpectedHash: sha1.Sum(make([]byte, 16))}

	err := run([]tracker.Address{addr}, [20]byte{1}, [20]byte{2}, []*Piece{piece}, output, nil)
	if err == nil {
		t.Fatal("expected ErrDownloadFailed when the only peer is unreachable")
	}
}

func mustParseAddr(t *testing.T, hostport string) tracker.Address {
	t.Helper()

	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		t.Fatalf("splitting %q: %v", hostport, err)
	}

	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		t.Fatalf("parsing port %q: %v", portStr, err)
	}

	return tracker.Address{IP: net.ParseIP(host).To4(), Port: uint16(port)}
}
