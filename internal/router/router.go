// Package router places classified pages into the output tree.
package router

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/kpauljoseph/consentsort/pkg/logger"
	"github.com/kpauljoseph/consentsort/pkg/models"
)

const (
	pageExt   = ".png"
	traceTail = "-log.txt"

	maxSuffix = 9999
)

var ErrInvalidIdentifier = errors.New("identifier is not a usable directory name")

type Router struct {
	dirs   models.OutputDirs
	logger *logger.Logger
}

func New(dirs models.OutputDirs, log *logger.Logger) *Router {
	return &Router{dirs: dirs, logger: log}
}

func (r *Router) Dirs() models.OutputDirs {
	return r.dirs
}

// ValidIdentifier reports whether a decoded payload can name a folder
// directly under the done directory.
func ValidIdentifier(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if c < 0x20 || c > 0x7e || c == '/' || c == '\\' {
			return false
		}
	}
	return true
}

// Save writes img as <done>/<id>/<id>.png. When that name is taken it tries
// <id>-01.png, <id>-02.png and so on. Each candidate is claimed with an
// exclusive create, so concurrent writers never share a name and nothing is
// overwritten.
func (r *Router) Save(img image.Image, id string) (string, error) {
	if !ValidIdentifier(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
	}
	dir := filepath.Join(r.dirs.Done, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create identifier directory: %w", err)
	}

	f, path, err := claim(dir, id, pageExt)
	if err != nil {
		return "", err
	}

	if err := imaging.Encode(f, img, imaging.PNG); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}

	r.logger.Debug("Saved page as %s", path)
	return path, nil
}

func claim(dir, base, ext string) (*os.File, string, error) {
	for i := 0; i <= maxSuffix; i++ {
		name := base + ext
		if i > 0 {
			name = fmt.Sprintf("%s-%02d%s", base, i, ext)
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("failed to create %s: %w", path, err)
		}
	}
	return nil, "", fmt.Errorf("no free name for %s%s in %s", base, ext, dir)
}

// CopyVerbatim copies src byte for byte into the failed directory under its
// original name, keeping its mode and modification time.
func (r *Router) CopyVerbatim(src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", src, err)
	}

	dst := filepath.Join(r.dirs.Failed, filepath.Base(src))
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return "", fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("failed to close %s: %w", dst, err)
	}
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		r.logger.Debug("Could not keep modification time of %s: %v", dst, err)
	}

	r.logger.Debug("Copied %s to %s", src, dst)
	return dst, nil
}

// TracePath is the debug trace file that accompanies artifact.
func TracePath(artifact string) string {
	return strings.TrimSuffix(artifact, filepath.Ext(artifact)) + traceTail
}

func (r *Router) WriteTrace(artifact string, lines []string) error {
	path := TracePath(artifact)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write trace %s: %w", path, err)
	}
	return nil
}
