package watcher

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/clobrano/briefbot/internal/config"
)

// Loader reads the configuration at path.
type Loader func(path string) (*config.Config, error)

// Watcher reloads a configuration file when it changes on disk and passes
// the new configuration to a callback. The parent directory is watched so
// that editors which replace the file by rename are also seen.
type Watcher struct {
	fsWatcher    *fsnotify.Watcher
	path         string
	load         Loader
	onChange     func(*config.Config)
	debounceTime time.Duration
	pending      bool
	deadline     time.Time
	mu           sync.Mutex
	done         chan struct{}
	stopOnce     sync.Once
}

func New(path string, load Loader, onChange func(*config.Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		fsw.Close()
		return nil, err
	}

	if load == nil {
		load = config.Load
	}

	return &Watcher{
		fsWatcher:    fsw,
		path:         abs,
		load:         load,
		onChange:     onChange,
		debounceTime: 500 * time.Millisecond,
		done:         make(chan struct{}),
	}, nil
}

func (w *Watcher) Start() error {
	if err := w.fsWatcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	go w.run()
	go w.debounceLoop()

	return nil
}

func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fsWatcher.Close()
	})
	return err
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename) {
				w.scheduleReload()
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("config watcher error")
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = true
	w.deadline = time.Now().Add(w.debounceTime)
}

func (w *Watcher) debounceLoop() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.mu.Lock()
			due := w.pending && time.Now().After(w.deadline)
			if due {
				w.pending = false
			}
			w.mu.Unlock()

			if due {
				w.reload()
			}
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := w.load(w.path)
	if err != nil {
		log.Error().Err(err).Str("path", w.path).Msg("failed to reload config, keeping previous")
		return
	}
	log.Info().Str("path", w.path).Msg("config reloaded")
	if w.onChange != nil {
		w.onChange(cfg)
	}
}
