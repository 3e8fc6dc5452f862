package server

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/matzehuels/castgraph/pkg/dataset"
)

// DefaultDebounce collapses bursts of file events into one reload.
const DefaultDebounce = 200 * time.Millisecond

// Watch reloads the dataset from src whenever one of paths changes, until
// ctx is cancelled. A failed reload is logged and the current dataset is
// kept. Directories are watched so editors that save by rename are seen.
func (s *Server) Watch(ctx context.Context, src dataset.Source, paths []string, debounce time.Duration, opts ...dataset.Option) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	names := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		names[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	var (
		timer  *time.Timer
		reload = make(chan struct{}, 1)
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			abs, _ := filepath.Abs(ev.Name)
			if !names[abs] || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			s.reload(ctx, src, opts...)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher", "error", err)
		}
	}
}

func (s *Server) reload(ctx context.Context, src dataset.Source, opts ...dataset.Option) {
	ds, err := dataset.Load(ctx, src, opts...)
	if err != nil {
		s.logger.Error("reload failed, keeping current dataset", "error", err)
		return
	}
	s.SetDataset(ds)
	s.logger.Info("dataset reloaded", "characters", ds.Len())
}
