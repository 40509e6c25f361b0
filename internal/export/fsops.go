package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// uniqueDest returns a path in dir that no file occupies yet, appending a
// numeric suffix to the stem on collision.
func uniqueDest(dir, filename string) string {
	dst := filepath.Join(dir, filename)
	if !pathExists(dst) {
		return dst
	}
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	for k := 1; ; k++ {
		cand := filepath.Join(dir, fmt.Sprintf("%s__%d%s", stem, k, ext))
		if !pathExists(cand) {
			return cand
		}
	}
}

func pathExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// atomicMove relocates src into dir under filename, disambiguating name
// collisions and falling back to copy+delete when rename crosses devices.
// Returns the final destination path.
func atomicMove(src, dir, filename string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	dst := uniqueDest(dir, filename)
	if err := os.Rename(src, dst); err != nil {
		if err := copyAndRemove(src, dst); err != nil {
			return "", fmt.Errorf("failed to move %s: %w", src, err)
		}
	}
	return dst, nil
}

func copyAndRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

// linkFile points dst at src without duplicating bytes: hard link first,
// relative symlink second. Reports whether either worked.
func linkFile(src, dst string) bool {
	os.Remove(dst)
	if os.Link(src, dst) == nil {
		return true
	}
	rel, err := filepath.Rel(filepath.Dir(dst), src)
	if err != nil {
		return false
	}
	return os.Symlink(rel, dst) == nil
}
