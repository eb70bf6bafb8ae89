package config

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Listener is called with the previous and the new configuration after a
// valid reload.
type Listener func(old, new *Config)

type Manager struct {
	mu        sync.RWMutex
	path      string
	config    *Config
	listeners []Listener
	watcher   *fsnotify.Watcher
	wg        sync.WaitGroup
	logger    *zap.Logger
}

func NewManager(logger *zap.Logger) (*Manager, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return NewManagerAt(configPath, logger)
}

func NewManagerAt(configPath string, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("config")

	config, err := LoadFrom(configPath, logger)
	if err != nil {
		logger.Error("failed to load initial configuration", zap.Error(err))
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Manager{
		path:   configPath,
		config: config,
		logger: logger,
	}, nil
}

func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	configCopy := *m.config
	return &configCopy
}

// OnReload registers fn for every later successful reload.
func (m *Manager) OnReload(fn Listener) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

func (m *Manager) StartWatching(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Editors replace the file on save, so watch the directory.
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		watcher.Close()
		return err
	}
	m.watcher = watcher

	m.wg.Add(1)
	go m.watchLoop(ctx)

	m.logger.Info("watching for changes", zap.String("path", m.path))
	return nil
}

func (m *Manager) Stop() {
	if m.watcher != nil {
		m.watcher.Close()
	}
	m.wg.Wait()
}

func (m *Manager) watchLoop(ctx context.Context) {
	defer m.wg.Done()
	name := filepath.Base(m.path)

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				m.logger.Debug("file change detected", zap.String("file", event.Name), zap.String("op", event.Op.String()))
				m.Reload()
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("watcher error", zap.Error(err))

		case <-ctx.Done():
			return
		}
	}
}

// Reload re-reads the file. An invalid file keeps the current configuration.
func (m *Manager) Reload() bool {
	newConfig, err := LoadFrom(m.path, m.logger)
	if err != nil {
		m.logger.Warn("failed to reload config", zap.Error(err))
		return false
	}
	if err := newConfig.Validate(); err != nil {
		m.logger.Warn("invalid config after reload", zap.Error(err))
		return false
	}

	m.mu.Lock()
	old := m.config
	m.config = newConfig
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	m.logger.Info("configuration reloaded")
	for _, fn := range listeners {
		fn(old, newConfig)
	}
	return true
}
