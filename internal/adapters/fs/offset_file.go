// Package fs persists follower offsets on the local filesystem.
package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"

	"github.com/bft-labs/udpship/internal/domain"
	"github.com/bft-labs/udpship/internal/ports"
)

// OffsetFile implements ports.OffsetStore using a JSON file.
type OffsetFile struct {
	path string
}

var _ ports.OffsetStore = (*OffsetFile)(nil)

// NewOffsetFile creates an OffsetFile stored at path.
func NewOffsetFile(path string) *OffsetFile {
	return &OffsetFile{path: path}
}

// Load retrieves the last saved offset from disk.
// Returns a zero offset and nil error if no file exists.
func (f *OffsetFile) Load(ctx context.Context) (domain.Offset, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Offset{}, nil
		}
		return domain.Offset{}, err
	}

	var offset domain.Offset
	if err := sonic.ConfigStd.Unmarshal(data, &offset); err != nil {
		return domain.Offset{}, fmt.Errorf("parse offset file %s: %w", f.path, err)
	}

	return offset, nil
}

// Save persists the offset atomically: write to a temp file, then rename.
func (f *OffsetFile) Save(ctx context.Context, offset domain.Offset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}

	data, err := sonic.ConfigStd.MarshalIndent(offset, "", "  ")
	if err != nil {
		return err
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}

	return os.Rename(tmp, f.path)
}

// Path returns the full path to the offset file.
func (f *OffsetFile) Path() string {
	return f.path
}
