package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/storage"
)

// ErrUnsupportedDestination is returned for artifact destinations that
// cannot hold generated documents.
var ErrUnsupportedDestination = errors.New("unsupported artifact destination")

// CheckArtifactDest rejects destinations WriteArtifact would fail on, so
// callers can refuse them before doing any work. HTTP review stores only
// hold review payloads.
func CheckArtifactDest(dest string) error {
	switch {
	case dest == "":
		return fmt.Errorf("%w: empty", ErrUnsupportedDestination)
	case strings.HasPrefix(dest, "http://"), strings.HasPrefix(dest, "https://"):
		return fmt.Errorf("%w %q: http review stores only accept review payloads", ErrUnsupportedDestination, dest)
	}
	return nil
}

// WriteArtifact stores a generated document. dest is a file path or a
// store URL (s3://bucket/prefix, file:///dir) in which case name is the key.
func (e *Engine) WriteArtifact(ctx context.Context, dest, name string, data []byte) error {
	if err := CheckArtifactDest(dest); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	switch {
	case isStoreURL(dest):
		store, err := storage.Open(ctx, dest, e.AWSOptions())
		if err != nil {
			return err
		}
		if err := store.Put(ctx, name, data); err != nil {
			return fmt.Errorf("failed to upload %s: %w", name, err)
		}
		e.Logger.Info("artifact uploaded", "dest", dest, "key", name, "bytes", len(data))
		return nil
	default:
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		if err := os.WriteFile(dest, append(append([]byte(nil), data...), '\n'), 0644); err != nil {
			return err
		}
		e.Logger.Info("artifact written", "path", dest, "bytes", len(data))
		return nil
	}
}

func isStoreURL(dest string) bool {
	for _, scheme := range []string{"s3://", "dynamodb://", "file://"} {
		if strings.HasPrefix(dest, scheme) {
			return true
		}
	}
	return false
}
