package search

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/rewdy/snaption/internal/models"
)

// RecordResolver maps an absolute sidecar path back to its catalog record.
// It returns false for sidecars of photos the catalog does not know.
type RecordResolver func(sidecarPath string) (models.PhotoRecord, bool)

// EventCallback is called after a watcher-driven entry change.
// kind is one of "created", "updated", or "deleted".
type EventCallback func(kind, relPath string)

// Watch observes the library root for sidecar edits made outside this
// process and keeps search entries current until ctx is canceled. New
// directories created at runtime are added to the watch list.
func Watch(ctx context.Context, ix *Indexer, resolve RecordResolver, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					continue
				}
			}

			if !strings.HasSuffix(absPath, ".md") || strings.HasPrefix(filepath.Base(absPath), ".") {
				continue
			}

			photo, known := resolve(absPath)
			if !known {
				continue
			}
			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil {
				rel = photo.Filename
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				ix.IndexBatch(ctx, []models.PhotoRecord{photo})
				logger.Debug("watcher: reindexed", slog.String("path", rel))
				if cb != nil {
					kind := "updated"
					if ev.Op&fsnotify.Create != 0 {
						kind = "created"
					}
					cb(kind, filepath.ToSlash(rel))
				}

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// Fail closed: without a sidecar the photo stays out of
				// filtered results until it is indexed again.
				if delErr := ix.Entries().Delete(photo.ID()); delErr != nil {
					logger.Warn("watcher: delete entry failed",
						slog.String("path", rel),
						slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: entry removed", slog.String("path", rel))
				if cb != nil {
					cb("deleted", filepath.ToSlash(rel))
				}
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its visible subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
