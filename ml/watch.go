package ml

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatchArtifacts logs a warning whenever one of the given artifact files is
// written, replaced or removed. Artifacts are loaded once, so the running
// process keeps serving the old model until it is restarted. The watcher
// stops when ctx is done.
func WatchArtifacts(ctx context.Context, paths []string, logger *zap.Logger) error {
	if len(paths) == 0 {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Directories are watched rather than files so atomic replaces are seen.
	watched := make(map[string]struct{}, len(paths))
	dirs := make(map[string]struct{})
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		watched[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			logger.Warn("cannot watch artifact directory", zap.String("dir", dir), zap.Error(err))
		}
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if _, hit := watched[filepath.Clean(event.Name)]; !hit {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				logger.Warn("artifact changed on disk; restart to load it",
					zap.String("path", event.Name),
					zap.String("op", event.Op.String()))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Error("artifact watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
