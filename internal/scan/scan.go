// Package scan implements the batched, cancelable library walk that
// discovers photo files and derives their sidecar paths.
package scan

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/rewdy/snaption/internal/models"
)

// DefaultBatchSize is the number of records emitted per batch.
const DefaultBatchSize = 75

// SidecarExtension is the extension substituted onto image paths.
const SidecarExtension = ".md"

var supportedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// packageExtensions mark bundle-style directories that are never descended
// into, mirroring the behavior of skipping package descendants.
var packageExtensions = map[string]bool{
	".app":           true,
	".bundle":        true,
	".framework":     true,
	".photoslibrary": true,
}

// Batch is one unit of the walk stream. A terminal batch may carry Err when
// enumeration failed; records emitted before it remain valid.
type Batch struct {
	Records []models.PhotoRecord
	Err     error
}

// Scanner walks a directory tree and streams batches of discovered photos.
type Scanner struct {
	batchSize int
}

// NewScanner creates a scanner emitting batches of up to batchSize records.
func NewScanner(batchSize int) *Scanner {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Scanner{batchSize: batchSize}
}

// Scan walks root on its own goroutine and returns the batch stream. The
// channel is closed when the walk completes, fails, or ctx is canceled;
// cancellation is checked at every file boundary and never emits a partial
// batch.
func (s *Scanner) Scan(ctx context.Context, root string) <-chan Batch {
	out := make(chan Batch, 1)

	go func() {
		defer close(out)

		absRoot, err := filepath.Abs(root)
		if err != nil {
			emit(ctx, out, Batch{Err: err})
			return
		}

		batch := make([]models.PhotoRecord, 0, s.batchSize)

		flush := func() bool {
			if len(batch) == 0 {
				return true
			}
			records := make([]models.PhotoRecord, len(batch))
			copy(records, batch)
			batch = batch[:0]
			return emit(ctx, out, Batch{Records: records})
		}

		walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if walkErr != nil {
				return walkErr
			}
			if path == absRoot {
				return nil
			}

			name := d.Name()
			if d.IsDir() {
				if strings.HasPrefix(name, ".") || packageExtensions[strings.ToLower(filepath.Ext(name))] {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasPrefix(name, ".") || !d.Type().IsRegular() {
				return nil
			}

			ext := strings.ToLower(filepath.Ext(name))
			if !supportedExtensions[ext] {
				return nil
			}

			rel, relErr := filepath.Rel(absRoot, path)
			if relErr != nil {
				rel = name
			}

			record := models.PhotoRecord{
				ImagePath:    path,
				SidecarPath:  strings.TrimSuffix(path, filepath.Ext(path)) + SidecarExtension,
				Filename:     name,
				RelativePath: filepath.ToSlash(rel),
			}
			if info, infoErr := d.Info(); infoErr == nil {
				record.ModifiedAt = info.ModTime()
			}

			batch = append(batch, record)
			if len(batch) >= s.batchSize {
				if !flush() {
					return ctx.Err()
				}
			}
			return nil
		})

		if walkErr != nil {
			if ctx.Err() != nil {
				// Canceled: stop without emitting the pending partial batch.
				return
			}
			flush()
			emit(ctx, out, Batch{Err: walkErr})
			return
		}

		flush()
	}()

	return out
}

// emit sends a batch unless the consumer is gone. Returns false on cancel.
func emit(ctx context.Context, out chan<- Batch, b Batch) bool {
	select {
	case out <- b:
		return true
	case <-ctx.Done():
		return false
	}
}
