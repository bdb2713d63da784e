package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Local stores objects as files under dir/bucket.
type Local struct {
	root string
}

func NewLocal(dir, bucket string) (*Local, error) {
	root := filepath.Join(dir, bucket)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob dir: %w", err)
	}
	return &Local{root: root}, nil
}

func (l *Local) Upload(ctx context.Context, path string, data []byte, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := filepath.Join(l.root, filepath.FromSlash(path))
	if !strings.HasPrefix(target, l.root+string(filepath.Separator)) {
		return fmt.Errorf("object path escapes bucket: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create object dir: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}
	return nil
}
