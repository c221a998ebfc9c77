package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"image"
	"io"
	"os"
)

// FileHash is the hex SHA-256 of the file's bytes.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// ImageHash digests decoded pixel values, so two encodings of the same page
// hash alike.
func ImageHash(img image.Image) string {
	hasher := sha256.New()
	bounds := img.Bounds()
	buf := make([]byte, 0, 8)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			buf = append(buf[:0], byte(r>>8), byte(r), byte(g>>8), byte(g), byte(b>>8), byte(b), byte(a>>8), byte(a))
			hasher.Write(buf)
		}
	}
	return hex.EncodeToString(hasher.Sum(nil))
}
