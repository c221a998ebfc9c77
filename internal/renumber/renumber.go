// Package renumber shifts scan sequence numbers up by one.
package renumber

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kpauljoseph/consentsort/internal/pairing"
	"github.com/kpauljoseph/consentsort/pkg/logger"
)

type Move struct {
	From string
	To   string
}

// Plan renames every numbered scan to image-NNNN<ext> with its sequence
// number incremented. Moves are ordered highest name first so a target is
// always vacated before it is reused.
func Plan(paths []string, ext string) ([]Move, []string) {
	files, unnumbered := pairing.Index(paths)
	pairing.SortDescending(files)

	moves := make([]Move, 0, len(files))
	for _, f := range files {
		name := fmt.Sprintf("image-%04d%s", f.Seq+1, ext)
		moves = append(moves, Move{From: f.Path, To: filepath.Join(filepath.Dir(f.Path), name)})
	}
	return moves, unnumbered
}

// Apply performs the moves in order and stops at the first one whose target
// is still taken.
func Apply(moves []Move, dryRun bool, log *logger.Logger) error {
	for _, m := range moves {
		log.Info("Move %s to %s", m.From, m.To)
		if dryRun {
			continue
		}
		if _, err := os.Lstat(m.To); err == nil {
			return fmt.Errorf("refusing to overwrite %s", m.To)
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err := os.Rename(m.From, m.To); err != nil {
			return fmt.Errorf("failed to move %s: %w", m.From, err)
		}
	}
	return nil
}
