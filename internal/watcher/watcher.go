// Package watcher auto-stages files dropped into a watched directory,
// the CLI counterpart of the admin page's drag-and-drop zone.
package watcher

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"rag-console/internal/docs"
	"rag-console/internal/models"
)

// Stager is the slice of the lifecycle manager the watcher needs
type Stager interface {
	StageFromPath(path string) (models.PendingFile, error)
}

// Watcher stages newly created files with an allowed extension
type Watcher struct {
	watcher    *fsnotify.Watcher
	stager     Stager
	extensions []string
}

func New(stager Stager, extensions []string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %v", err)
	}
	if len(extensions) == 0 {
		extensions = []string{".pdf", ".txt", ".md"}
	}
	return &Watcher{watcher: w, stager: stager, extensions: extensions}, nil
}

// Watch monitors dir until ctx is done and emits each staged file on the
// returned channel. The channel closes when the watch ends.
func (w *Watcher) Watch(ctx context.Context, dir string) (<-chan models.PendingFile, error) {
	if err := w.watcher.Add(dir); err != nil {
		return nil, fmt.Errorf("failed to watch %s: %v", dir, err)
	}

	staged := make(chan models.PendingFile, 100)

	go func() {
		defer close(staged)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !event.Op.Has(fsnotify.Create) {
					continue
				}
				if !docs.HasExtension(event.Name, w.extensions) {
					continue
				}
				file, err := w.stager.StageFromPath(event.Name)
				if err != nil {
					log.Warn().Err(err).Str("path", event.Name).Msg("failed to stage dropped file")
					continue
				}
				log.Info().Str("file", file.Name).Msg("staged dropped file")
				select {
				case staged <- file:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("watcher error")
			}
		}
	}()

	return staged, nil
}

// Stop releases the underlying file system watcher
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}
