package scheduler

import (
	"crypto/sha1"
	"fmt"
	"os"
)

// --------------------------------------------------------------------------------------------- //

// scratchPath is where an individual piece's verified bytes are written
// before the final file assembly step.
func scratchPath(output string, index int) string {
	return fmt.Sprintf("%s.%d", output, index)
}

// --------------------------------------------------------------------------------------------- //

/*
writeScratchFile persists a verified piece's bytes to its scratch file.
The write goes to a temporary name first and is then renamed into place,
so a scratch file is always either absent or fully present — never
observed half-written by a concurrent stat.
*/
func writeScratchFile(output string, index int, data []byte) error {
	final := scratchPath(output, index)
	tmp := final + ".tmp"

	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("scheduler: writing scratch file for piece %d: %v", index, err)
	}

	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("scheduler: renaming scratch file for piece %d: %v", index, err)
	}

	return nil
}

// --------------------------------------------------------------------------------------------- //

// pieceComplete reports whether a piece's scratch file is present, the
// right size, and hashes to the expected digest.
func pieceComplete(output string, p *Piece) bool {
	data, err := os.ReadFile(scratchPath(output, p.Index))
	if err != nil {
		return false
	}

	if int64(len(data)) != p.Length {
		return false
	}

	return sha1.Sum(data) == p.ExpectedHash
}

// --------------------------------------------------------------------------------------------- //

/*
assemble concatenates every piece's scratch file, in index order, into
output, then removes the scratch files. Called only once every piece has
been independently verified complete.
*/
func assemble(output string, pieces []*Piece) error {
	out, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("scheduler: creating output file %q: %v", output, err)
	}
	defer out.Close()

	for _, p := range pieces {
		data, err := os.ReadFile(scratchPath(output, p.Index))
		if err != nil {
			return fmt.Errorf("scheduler: reading scratch file for piece %d: %v", p.Index, err)
		}

		if _, err := out.Write(data); err != nil {
			return fmt.Errorf("scheduler: writing piece %d to %q: %v", p.Index, output, err)
		}
	}

	for _, p := range pieces {
		os.Remove(scratchPath(output, p.Index))
	}

	return nil
}
