// internal/markersrc/os.go
package markersrc

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
)

// OS reads markers from the local filesystem.
type OS struct{}

func (OS) Exists(_ context.Context, path string) (bool, error) {
	fi, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !fi.IsDir(), nil
}

func (OS) ReadText(_ context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	b, err := io.ReadAll(io.LimitReader(f, MaxMarkerBytes))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
