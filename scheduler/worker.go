package scheduler

import (
	"crypto/sha1"
	"fmt"
	"log"

	"github.com/lvbealr/gorent/peerwire"
	"github.com/lvbealr/gorent/tracker"
)

// requestBatchSize caps how many block requests a worker pipelines to a
// peer before reading responses, per spec.md §4.6.
const requestBatchSize = 5

// --------------------------------------------------------------------------------------------- //

/*
runWorker dials one peer and, until the queue yields a shutdown sentinel
or the connection fails, takes pieces from the queue and downloads them.
Any failure — dial, handshake, I/O, or hash mismatch — returns the
in-flight piece to the queue and ends the worker; it does not retry
against the same peer.
*/
func runWorker(addr tracker.Address, infoHash, peerID [20]byte, q *queue, output string, doneCh chan<- int, bar progressReporter) {
	conn, remotePeerID, err := peerwire.Open(addr.String(), infoHash, peerID, false)
	if err != nil {
		log.Printf("[WARN]\tworker for %s: %v\n", addr, err)
		return
	}
	defer conn.Close()

	log.Printf("[INFO]\tworker for %s: connected, remote peer id %x\n", addr, remotePeerID)

	for {
		piece := q.take()
		if piece == nil {
			return
		}

		if err := downloadPiece(conn, piece, output); err != nil {
			log.Printf("[WARN]\tworker for %s: piece %d: %v\n", addr, piece.Index, err)
			q.requeue(piece)
			return
		}

		if bar != nil {
			bar.Add(int(piece.Length))
		}

		doneCh <- piece.Index
	}
}

// --------------------------------------------------------------------------------------------- //

// downloadPiece fetches every block of a piece in pipelined batches,
// verifies the assembled bytes against its expected hash, and writes it
// to its scratch file.
func downloadPiece(conn *peerwire.Conn, p *Piece, output string) error {
	requests := blockRequests(p)
	assembled := make([]byte, 0, p.Length)

	for start := 0; start < len(requests); start += requestBatchSize {
		end := start + requestBatchSize
		if end > len(requests) {
			end = len(requests)
		}

		blocks, err := conn.FetchBlocks(requests[start:end])
		if err != nil {
			return err
		}

		for _, b := range blocks {
			assembled = append(assembled, b.Block...)
		}
	}

	if int64(len(assembled)) != p.Length {
		return fmt.Errorf("scheduler: piece %d: got %d bytes, want %d: %w", p.Index, len(assembled), p.Length, ErrHashMismatch)
	}

	if sha1.Sum(assembled) != p.ExpectedHash {
		return fmt.Errorf("scheduler: piece %d: %w", p.Index, ErrHashMismatch)
	}

	return writeScratchFile(output, p.Index, assembled)
}

// --------------------------------------------------------------------------------------------- //

// blockRequests splits a piece into its constituent 16KiB (or shorter,
// for the final block) Request messages in ascending order.
func blockRequests(p *Piece) []*peerwire.Message {
	var reqs []*peerwire.Message

	for begin := int64(0); begin < p.Length; begin += peerwire.BlockSize {
		length := int64(peerwire.BlockSize)
		if remaining := p.Length - begin; remaining < length {
			length = remaining
		}

		reqs = append(reqs, peerwire.FormatRequest(p.Index, int(begin), int(length)))
	}

	return reqs
}

// --------------------------------------------------------------------------------------------- //

// progressReporter is the subset of schollz/progressbar's API the
// scheduler depends on, so tests can substitute a no-op.
type progressReporter interface {
	Add(int) error
}
