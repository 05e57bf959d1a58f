package normalize

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 250 * time.Millisecond

// Holder publishes the current abbreviation dictionary. Readers always see a
// complete, immutable dictionary; reloads swap the pointer atomically.
type Holder struct {
	current atomic.Pointer[Dictionary]
	reloads atomic.Int64
}

// NewHolder creates a holder serving d. A nil d serves an empty dictionary.
func NewHolder(d *Dictionary) *Holder {
	if d == nil {
		d = NewDictionary()
	}
	h := &Holder{}
	h.current.Store(d)
	return h
}

// Load returns the dictionary currently in effect
func (h *Holder) Load() *Dictionary {
	return h.current.Load()
}

// Store replaces the dictionary in effect
func (h *Holder) Store(d *Dictionary) {
	if d == nil {
		return
	}
	h.current.Store(d)
	h.reloads.Add(1)
}

// Reloads returns how many times the dictionary has been replaced
func (h *Holder) Reloads() int64 {
	return h.reloads.Load()
}

// ReloadFile parses path and swaps it in. On error the previous dictionary stays.
func (h *Holder) ReloadFile(path string) error {
	d, err := LoadDictionaryFile(path)
	if err != nil {
		return err
	}
	h.Store(d)
	return nil
}

// Watch reloads the dictionary whenever path changes until ctx is cancelled.
// The parent directory is watched so editors that replace the file by rename
// are picked up.
func (h *Holder) Watch(ctx context.Context, path string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating dictionary watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	go func() {
		defer fsw.Close()

		var mu sync.Mutex
		var timer *time.Timer
		reload := func() {
			if err := h.ReloadFile(abs); err != nil {
				logger.Warn("abbreviation dictionary reload failed, keeping previous",
					zap.String("path", abs), zap.Error(err))
				return
			}
			logger.Info("abbreviation dictionary reloaded",
				zap.String("path", abs), zap.Int("entries", h.Load().Len()))
		}

		for {
			select {
			case <-ctx.Done():
				mu.Lock()
				if timer != nil {
					timer.Stop()
				}
				mu.Unlock()
				return
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				mu.Lock()
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(reloadDebounce, reload)
				mu.Unlock()
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				logger.Warn("abbreviation dictionary watcher error", zap.Error(err))
			}
		}
	}()

	return nil
}
