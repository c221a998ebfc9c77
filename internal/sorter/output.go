package sorter

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kpauljoseph/consentsort/internal/config"
	"github.com/kpauljoseph/consentsort/pkg/models"
)

var (
	ErrOutputNotEmpty = errors.New("output directory already exists and is not empty")
	ErrOutputLocked   = errors.New("output directory is in use by another run")
)

// PrepareOutput creates root with its done and failed subdirectories. An
// existing non-empty root is refused before anything is written.
func PrepareOutput(root string, cfg *config.Config) (models.OutputDirs, error) {
	dirs := models.OutputDirs{
		Root:   root,
		Done:   filepath.Join(root, cfg.DoneDir),
		Failed: filepath.Join(root, cfg.FailedDir),
	}

	info, err := os.Stat(root)
	switch {
	case err == nil && !info.IsDir():
		return dirs, fmt.Errorf("output path %s is not a directory", root)
	case err == nil:
		empty, err := isEmptyDir(root)
		if err != nil {
			return dirs, fmt.Errorf("failed to inspect output directory: %w", err)
		}
		if !empty {
			return dirs, fmt.Errorf("%w: %s", ErrOutputNotEmpty, root)
		}
	case !os.IsNotExist(err):
		return dirs, fmt.Errorf("failed to inspect output directory: %w", err)
	}

	for _, dir := range []string{root, dirs.Done, dirs.Failed} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return dirs, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return dirs, nil
}

func isEmptyDir(dir string) (bool, error) {
	f, err := os.Open(dir)
	if err != nil {
		return false, err
	}
	defer f.Close()

	_, err = f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	return false, err
}

// ListScans returns the non-hidden regular files in dir whose name ends in
// ext.
func ListScans(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ext) {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	return paths, nil
}
