package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const debounceDelay = 300 * time.Millisecond

// Watcher reloads the configuration whenever the config directory changes.
// Dev mode uses it so ignore-list and config edits apply without a restart.
type Watcher struct {
	configDir string
	args      []string
	onChange  func(*Config)
}

// NewWatcher builds a watcher that re-runs Load with the given args on every
// change and hands the result to onChange.
func NewWatcher(configDir string, args []string, onChange func(*Config)) *Watcher {
	return &Watcher{
		configDir: configDir,
		args:      args,
		onChange:  onChange,
	}
}

// Run watches until the context is cancelled. Editor write bursts are
// debounced so a save triggers a single reload.
func (w *Watcher) Run(ctx context.Context, logger *zerolog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(w.configDir); err != nil {
		return err
	}

	var timer *time.Timer
	pending := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !w.relevant(event) {
				continue
			}

			logger.Debug().Str("path", event.Name).Msg("config change detected")
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceDelay, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("config watcher error")
		case <-pending:
			cfg, err := Load(w.configDir, w.args)
			if err != nil {
				logger.Warn().Err(err).Msg("ignoring broken config update")
				continue
			}

			if err := cfg.Validate(); err != nil {
				logger.Warn().Err(err).Msg("ignoring invalid config update")
				continue
			}

			logger.Info().Msg("configuration reloaded")
			w.onChange(cfg)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
		return false
	}

	name := filepath.Base(event.Name)
	return name == "config.toml" || name == "ignore"
}
