package utils

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// UploadDir is served statically under /uploads when R2 is off.
const UploadDir = "uploads"

// LocalStore keeps uploads on disk below Dir.
type LocalStore struct {
	Dir       string
	URLPrefix string
}

// Put writes body to Dir/key and returns URLPrefix/key.
func (l *LocalStore) Put(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	destPath := filepath.Join(l.Dir, filepath.FromSlash(key))

	// ✅ Ensure the directory for the destination file exists
	if err := os.MkdirAll(filepath.Dir(destPath), os.ModePerm); err != nil {
		return "", err
	}

	dst, err := os.Create(destPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, body); err != nil {
		return "", err
	}
	return strings.TrimRight(l.URLPrefix, "/") + "/" + key, nil
}
