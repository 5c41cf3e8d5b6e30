package scheduler

import "errors"

// ErrHashMismatch is returned when an assembled piece's SHA-1 does not
// match the digest recorded in the torrent's info dictionary.
var ErrHashMismatch = errors.New("scheduler: piece hash mismatch")

// ErrDownloadFailed is returned when the worker pool is empty (every
// worker has exited) and at least one piece is still incomplete.
var ErrDownloadFailed = errors.New("scheduler: download failed, no workers remain")
