// Package configstore holds the listener settings and persists them as a
// key=value file:
//
//	Port=9001
//	DragTime=5000
//	WindowName=VRChat
//	AutoStart=False
package configstore

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"tondrag/util"
)

const (
	DefaultPort       uint16 = 9001
	DefaultDragTime          = 5 * time.Second
	DefaultWindowName        = "VRChat"
)

// Config is the persisted configuration.
type Config struct {
	Port       uint16
	DragTime   time.Duration
	WindowName string
	AutoStart  bool
}

// Default returns the configuration used when the file is missing.
func Default() Config {
	return Config{
		Port:       DefaultPort,
		DragTime:   DefaultDragTime,
		WindowName: DefaultWindowName,
	}
}

// Store guards a Config and its file. All methods are safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	path   string
	cfg    Config
	logger *slog.Logger

	overrides func(*Config)
}

// New creates a Store holding the defaults. Call Load to read the file.
func New(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, cfg: Default(), logger: logger}
}

// Path returns the config file location.
func (s *Store) Path() string { return s.path }

// Load reads the file. A missing file leaves the defaults in place. On a
// parse error the current configuration is kept. Overrides are applied on
// top of what was read.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parse %s: %w", s.path, err)
	}

	s.mu.Lock()
	if s.overrides != nil {
		s.overrides(&cfg)
	}
	s.cfg = cfg
	s.mu.Unlock()
	return nil
}

// Save writes the current configuration to the file.
func (s *Store) Save() error {
	cfg := s.Get()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := Write(&buf, cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(s.path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Get returns a copy of the current configuration.
func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Update applies fn to the configuration under the lock.
func (s *Store) Update(fn func(*Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.cfg)
}

// SetOverrides applies fn to the current configuration and again after
// every successful Load, so values set from outside the file survive a
// reload.
func (s *Store) SetOverrides(fn func(*Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides = fn
	if fn != nil {
		fn(&s.cfg)
	}
}

// Parse reads key=value lines. Keys missing from r keep their defaults;
// unknown keys, blank lines, comments and lines without '=' are skipped.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		var err error
		switch key {
		case "Port":
			cfg.Port, err = util.ParsePort(value)
		case "DragTime":
			cfg.DragTime, err = util.ParseDragTime(value)
		case "WindowName":
			cfg.WindowName = value
		case "AutoStart":
			cfg.AutoStart, err = util.ParseBool(value)
		}
		if err != nil {
			return Config{}, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Write emits cfg in the format Parse reads.
func Write(w io.Writer, cfg Config) error {
	_, err := fmt.Fprintf(w, "Port=%d\nDragTime=%s\nWindowName=%s\nAutoStart=%s\n",
		cfg.Port,
		util.FormatDragTime(cfg.DragTime),
		cfg.WindowName,
		util.FormatBool(cfg.AutoStart),
	)
	return err
}
