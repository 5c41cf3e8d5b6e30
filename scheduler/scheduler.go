package scheduler

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/lvbealr/gorent/metainfo"
	"github.com/lvbealr/gorent/tracker"
)

// --------------------------------------------------------------------------------------------- //

/*
Download drives the full single-file download of mf to output: it builds
the piece work queue, spawns one worker per address, waits for either
every piece to complete or the pool to run dry, then assembles the
scratch files into output and removes them.

A progress bar is rendered to stderr when showProgress is set; callers
typically gate that on whether stderr is a terminal.
*/
func Download(addresses []tracker.Address, mf *metainfo.MetaInfoFile, peerID [20]byte, output string, showProgress bool) error {
	pieces, err := PiecesFromInfo(&mf.Info)
	if err != nil {
		return err
	}

	var bar progressReporter
	if showProgress {
		bar = progressbar.DefaultBytes(mf.Info.Length, fmt.Sprintf("downloading %s", mf.Info.Name))
	}

	if err := run(addresses, mf.Info.Hash(), peerID, pieces, output, bar); err != nil {
		return err
	}

	return assemble(output, pieces)
}

// --------------------------------------------------------------------------------------------- //

/*
DownloadPiece fetches a single piece (spec.md's download_piece CLI
subcommand) and leaves its verified bytes at output, with no further
assembly step.
*/
func DownloadPiece(addresses []tracker.Address, mf *metainfo.MetaInfoFile, peerID [20]byte, index int, output string) error {
	length, err := mf.Info.PieceLengthAt(index)
	if err != nil {
		return err
	}

	piece := &Piece{
		Index:        index,
		Begin:        int64(index) * mf.Info.PieceLength,
		Length:       length,
		ExpectedHash: mf.Info.PieceHashes[index],
	}

	tmpOutput := output + ".piece"
	if err := run(addresses, mf.Info.Hash(), peerID, []*Piece{piece}, tmpOutput, nil); err != nil {
		return err
	}

	data, err := os.ReadFile(scratchPath(tmpOutput, index))
	if err != nil {
		return fmt.Errorf("scheduler: reading downloaded piece %d: %v", index, err)
	}

	if err := os.WriteFile(output, data, 0644); err != nil {
		return fmt.Errorf("scheduler: writing piece %d to %q: %v", index, output, err)
	}

	return os.Remove(scratchPath(tmpOutput, index))
}

// --------------------------------------------------------------------------------------------- //

// run spawns one worker per address, drives them against pieces, and
// blocks until every piece is complete or the worker pool is empty.
func run(addresses []tracker.Address, infoHash, peerID [20]byte, pieces []*Piece, output string, bar progressReporter) error {
	if len(addresses) == 0 {
		return fmt.Errorf("scheduler: %w", ErrDownloadFailed)
	}

	q := newQueue(pieces, len(addresses))
	doneCh := make(chan int, len(pieces))

	var wg sync.WaitGroup
	wg.Add(len(addresses))

	for _, addr := range addresses {
		go func(addr tracker.Address) {
			defer wg.Done()
			runWorker(addr, infoHash, peerID, q, output, doneCh, bar)
		}(addr)
	}

	workersExited := make(chan struct{})
	go func() {
		wg.Wait()
		close(workersExited)
	}()

	completed := make(map[int]bool, len(pieces))
	exited := workersExited

	for len(completed) < len(pieces) {
		select {
		case idx := <-doneCh:
			recordCompletion(output, pieces, idx, completed)

		case <-exited:
			exited = nil // already fired; stop selecting on a closed channel

			drainCompletions(doneCh, output, pieces, completed)

			if len(completed) < len(pieces) {
				q.stop(len(addresses))
				return fmt.Errorf("scheduler: %d/%d pieces complete: %w", len(completed), len(pieces), ErrDownloadFailed)
			}
		}
	}

	q.stop(len(addresses))
	wg.Wait()

	return nil
}

// --------------------------------------------------------------------------------------------- //

func recordCompletion(output string, pieces []*Piece, idx int, completed map[int]bool) {
	for _, p := range pieces {
		if p.Index == idx && pieceComplete(output, p) {
			completed[idx] = true
			return
		}
	}

	log.Printf("[WARN]\tpiece %d reported done but failed completion check\n", idx)
}

// --------------------------------------------------------------------------------------------- //

func drainCompletions(doneCh chan int, output string, pieces []*Piece, completed map[int]bool) {
	for {
		select {
		case idx := <-doneCh:
			recordCompletion(output, pieces, idx, completed)
		default:
			return
		}
	}
}
