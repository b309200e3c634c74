package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/alan-christopher/qkdchan/chandist"
	"github.com/alan-christopher/qkdchan/chandist/freqcor"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Acquisition software rewrites the matrix in several writes.
const reloadDebounce = 200 * time.Millisecond

// matrixWatcher reloads the correlation matrix whenever its file changes.
type matrixWatcher struct {
	path    string
	cat     chandist.Catalog
	send    func(tea.Msg)
	logger  *zap.Logger
	watcher *fsnotify.Watcher
}

// newMatrixWatcher watches the directory holding path so that files replaced
// by rename are picked up too.
func newMatrixWatcher(path string, cat chandist.Catalog, send func(tea.Msg), logger *zap.Logger) (*matrixWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, err
	}
	return &matrixWatcher{
		path:    abs,
		cat:     cat,
		send:    send,
		logger:  logger,
		watcher: w,
	}, nil
}

// run delivers a matrixMsg for every settled change until ctx is done.
func (mw *matrixWatcher) run(ctx context.Context) {
	defer mw.watcher.Close()
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-mw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != mw.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(reloadDebounce)

		case err, ok := <-mw.watcher.Errors:
			if !ok {
				return
			}
			mw.logger.Warn("Watching correlation matrix", zap.Error(err))

		case <-pending:
			pending = nil
			m, err := freqcor.Load(mw.path, mw.cat)
			if err == nil && m == nil {
				// Renamed away; keep the matrix on screen until it returns.
				continue
			}
			mw.logger.Debug("Correlation matrix changed", zap.String("path", mw.path), zap.Error(err))
			mw.send(matrixMsg{matrix: m, err: err})
		}
	}
}
