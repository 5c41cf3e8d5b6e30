// Package scheduler implements the parallel piece-downloading scheduler
// described in spec.md §4.6: a work queue of pieces, a pool of one worker
// per peer, per-piece SHA-1 verification, and requeue-on-failure.
package scheduler

import (
	"fmt"

	"github.com/lvbealr/gorent/metainfo"
)

// --------------------------------------------------------------------------------------------- //

// Piece is a single piece's download descriptor: its index, byte range
// within the target file, and its expected SHA-1 digest.
type Piece struct {
	Index        int
	Begin        int64
	Length       int64
	ExpectedHash [20]byte
}

// --------------------------------------------------------------------------------------------- //

// PiecesFromInfo builds the ordered list of piece descriptors for a
// metainfo.Info.
func PiecesFromInfo(info *metainfo.Info) ([]*Piece, error) {
	pieces := make([]*Piece, len(info.PieceHashes))

	for i := range info.PieceHashes {
		length, err := info.PieceLengthAt(i)
		if err != nil {
			return nil, fmt.Errorf("scheduler: building piece %d: %v", i, err)
		}

		if length <= 0 || length > info.PieceLength {
			return nil, fmt.Errorf("scheduler: piece %d has invalid length %d", i, length)
		}

		pieces[i] = &Piece{
			Index:        i,
			Begin:        int64(i) * info.PieceLength,
			Length:       length,
			ExpectedHash: info.PieceHashes[i],
		}
	}

	return pieces, nil
}
