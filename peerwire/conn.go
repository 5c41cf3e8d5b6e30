package peerwire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/google/uuid"
)

func beUint32(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}

// --------------------------------------------------------------------------------------------- //

// ErrIO wraps any socket I/O failure, including read/write timeouts, that
// occurs once a connection is established.
var ErrIO = errors.New("peerwire: i/o error")

// ReadTimeout is the socket deadline applied to the warm-up sequence and to
// each FetchBlocks batch; the handshake read uses the shorter dial timeout
// instead. spec.md §5 only recommends a timeout, it does
// not mandate a value, so this follows the suggested 30s.
const ReadTimeout = 30 * time.Second

const dialTimeout = 5 * time.Second

// --------------------------------------------------------------------------------------------- //

/*
Conn is a scoped resource wrapping a single TCP connection to one peer: the
handshake, the bitfield/interested/unchoke warm-up, and the pipelined
block-fetch operation of spec.md §4.5. Close must run on every exit path
(success, error, cancellation); callers should defer it immediately after
Open succeeds.
*/
type Conn struct {
	id       string
	addr     string
	sock     net.Conn
	peerID   [20]byte
	ready    bool
	poisoned bool
}

// --------------------------------------------------------------------------------------------- //

/*
Open dials addr, performs the handshake with infoHash/peerID, and — unless
handshakeOnly is set — completes the warm-up sequence: read Bitfield, send
Interested, read until Unchoke. The returned remote peer id is always
populated, even when handshakeOnly is set.
*/
func Open(addr string, infoHash, peerID [20]byte, handshakeOnly bool) (*Conn, [20]byte, error) {
	workerID := uuid.New().String()[:8]

	sock, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, [20]byte{}, fmt.Errorf("peerwire: worker %s: dial %s: %v: %w", workerID, addr, err, ErrIO)
	}

	c := &Conn{id: workerID, addr: addr, sock: sock}

	if err := SendHandshake(sock, infoHash, peerID); err != nil {
		sock.Close()
		return nil, [20]byte{}, err
	}

	sock.SetReadDeadline(time.Now().Add(dialTimeout))
	remote, err := ReadHandshake(sock)
	if err != nil {
		sock.Close()
		return nil, [20]byte{}, err
	}

	if err := VerifyInfoHash(remote, infoHash); err != nil {
		sock.Close()
		return nil, [20]byte{}, err
	}

	c.peerID = remote.PeerID
	log.Printf("[INFO]\tworker %s: handshake with %s ok, remote peer id %x\n", c.id, addr, remote.PeerID)

	if handshakeOnly {
		return c, remote.PeerID, nil
	}

	if err := c.warmUp(); err != nil {
		sock.Close()
		return nil, [20]byte{}, err
	}

	return c, remote.PeerID, nil
}

// --------------------------------------------------------------------------------------------- //

func (c *Conn) warmUp() error {
	c.sock.SetReadDeadline(time.Now().Add(ReadTimeout))

	msg, err := ReadMessage(c.sock)
	if err != nil {
		return fmt.Errorf("peerwire: worker %s: reading bitfield: %v: %w", c.id, err, ErrIO)
	}

	if msg == nil || msg.ID != MsgBitfield {
		return fmt.Errorf("peerwire: worker %s: expected Bitfield, got %v: %w", c.id, msg, ErrProtocol)
	}

	log.Printf("[INFO]\tworker %s: received bitfield (%d bytes)\n", c.id, len(msg.Payload))

	if err := WriteMessage(c.sock, &Message{ID: MsgInterested}); err != nil {
		return fmt.Errorf("peerwire: worker %s: sending interested: %v: %w", c.id, err, ErrIO)
	}

	for {
		msg, err := ReadMessage(c.sock)
		if err != nil {
			return fmt.Errorf("peerwire: worker %s: waiting for unchoke: %v: %w", c.id, err, ErrIO)
		}

		if msg == nil {
			continue // keep-alive, tolerated
		}

		switch msg.ID {
		case MsgUnchoke:
			c.ready = true
			log.Printf("[INFO]\tworker %s: unchoked, ready\n", c.id)
			return nil
		case MsgHave:
			continue // tolerated, ignored
		case MsgBitfield:
			return fmt.Errorf("peerwire: worker %s: unexpected second bitfield: %w", c.id, ErrProtocol)
		default:
			return fmt.Errorf("peerwire: worker %s: unexpected message %v while waiting for unchoke: %w", c.id, msg.ID, ErrProtocol)
		}
	}
}

// --------------------------------------------------------------------------------------------- //

// Ready reports whether the warm-up sequence completed successfully.
func (c *Conn) Ready() bool {
	return c.ready
}

// --------------------------------------------------------------------------------------------- //

type blockKey struct {
	index int
	begin int
}

// --------------------------------------------------------------------------------------------- //

/*
FetchBlocks sends requests back-to-back (pipelined), then reads exactly
len(requests) Piece messages. A cooperative peer answers in order, but
since the protocol permits reordering, returned pieces are matched by
(index, begin) rather than position. Any I/O failure or unexpected message
poisons the connection; callers must Close it and not reuse it.
*/
func (c *Conn) FetchBlocks(requests []*Message) ([]ParsedPiece, error) {
	if c.poisoned {
		return nil, fmt.Errorf("peerwire: worker %s: connection is poisoned: %w", c.id, ErrProtocol)
	}

	c.sock.SetDeadline(time.Now().Add(ReadTimeout))
	defer c.sock.SetDeadline(time.Time{})

	for _, req := range requests {
		if err := WriteMessage(c.sock, req); err != nil {
			c.poisoned = true
			return nil, fmt.Errorf("peerwire: worker %s: sending request: %v: %w", c.id, err, ErrIO)
		}
	}

	want := make(map[blockKey]bool, len(requests))
	for _, req := range requests {
		if req.ID != MsgRequest || len(req.Payload) != 12 {
			c.poisoned = true
			return nil, fmt.Errorf("peerwire: worker %s: malformed request batch: %w", c.id, ErrProtocol)
		}

		index, begin := requestIndexBegin(req)
		want[blockKey{index, begin}] = true
	}

	results := make(map[blockKey]ParsedPiece, len(requests))

	for len(results) < len(requests) {
		msg, err := ReadMessage(c.sock)
		if err != nil {
			c.poisoned = true
			return nil, fmt.Errorf("peerwire: worker %s: reading piece: %v: %w", c.id, err, ErrIO)
		}

		if msg == nil {
			continue // keep-alive
		}

		if msg.ID != MsgPiece {
			c.poisoned = true
			return nil, fmt.Errorf("peerwire: worker %s: unexpected message %v while fetching blocks: %w", c.id, msg.ID, ErrProtocol)
		}

		pp, err := ParsePiece(msg)
		if err != nil {
			c.poisoned = true
			return nil, err
		}

		key := blockKey{pp.Index, pp.Begin}
		if !want[key] {
			c.poisoned = true
			return nil, fmt.Errorf("peerwire: worker %s: piece response (%d,%d) matches no outstanding request: %w", c.id, pp.Index, pp.Begin, ErrProtocol)
		}

		results[key] = pp
	}

	ordered := make([]ParsedPiece, 0, len(requests))
	for _, req := range requests {
		index, begin := requestIndexBegin(req)
		ordered = append(ordered, results[blockKey{index, begin}])
	}

	return ordered, nil
}

// --------------------------------------------------------------------------------------------- //

func requestIndexBegin(req *Message) (int, int) {
	return int(beUint32(req.Payload[0:4])), int(beUint32(req.Payload[4:8]))
}

// --------------------------------------------------------------------------------------------- //

// Close flushes and closes the underlying socket. It is safe to call more
// than once.
func (c *Conn) Close() error {
	if c.sock == nil {
		return nil
	}

	err := c.sock.Close()
	c.sock = nil

	return err
}
