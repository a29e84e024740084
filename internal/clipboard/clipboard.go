// Package clipboard is the boundary to wherever copied results go.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/atotto/clipboard"

	"github.com/raysh454/scrapeform/internal/logging"
)

// Clipboard receives copied text.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// ErrUnsupported is returned by System when the host has no clipboard
// utility (no xclip/xsel/wl-copy on Linux, for example).
var ErrUnsupported = errors.New("clipboard unsupported on this host")

// System writes to the host clipboard. It is meant for a server running on
// the user's own machine.
type System struct {
	logger logging.Logger
}

func NewSystem(logger logging.Logger) *System {
	return &System{logger: logger.With(logging.Field{Key: "backend", Value: "system"})}
}

func (s *System) WriteText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if clipboard.Unsupported {
		return ErrUnsupported
	}
	if err := clipboard.WriteAll(text); err != nil {
		s.logger.Warn("clipboard write failed", logging.Field{Key: "error", Value: err.Error()})
		return fmt.Errorf("write clipboard: %w", err)
	}
	s.logger.Debug("wrote clipboard", logging.Field{Key: "bytes", Value: len(text)})
	return nil
}

// Memory keeps the last written text in process. Useful on headless hosts
// and for inspecting what a copy would have produced.
type Memory struct {
	mu     sync.Mutex
	text   string
	writes int
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) WriteText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
	m.writes++
	return nil
}

// Text returns the most recently written text.
func (m *Memory) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text
}

// Writes returns the number of successful writes.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Backend names accepted by New.
const (
	BackendSystem = "system"
	BackendMemory = "memory"
)

// BackendConstructor constructs a Clipboard given a logger.
type BackendConstructor func(logger logging.Logger) (Clipboard, error)

var (
	mu           sync.RWMutex
	registry     = map[string]BackendConstructor{}
	defaultsOnce sync.Once
)

// RegisterBackend registers a named backend constructor. Name is lower-cased
// internally. Registering the same name again overwrites the previous one.
func RegisterBackend(name string, ctor BackendConstructor) {
	if name == "" || ctor == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	registry[strings.ToLower(name)] = ctor
}

// RegisterDefaultBackends registers the system and memory backends.
func RegisterDefaultBackends() {
	RegisterBackend(BackendSystem, func(logger logging.Logger) (Clipboard, error) {
		return NewSystem(logger), nil
	})
	RegisterBackend(BackendMemory, func(logging.Logger) (Clipboard, error) {
		return NewMemory(), nil
	})
}

// New constructs the named backend; an empty name means "system".
func New(name string, logger logging.Logger) (Clipboard, error) {
	defaultsOnce.Do(RegisterDefaultBackends)

	backend := strings.ToLower(strings.TrimSpace(name))
	if backend == "" {
		backend = BackendSystem
	}

	mu.RLock()
	ctor, ok := registry[backend]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("clipboard backend %q not registered: available backends=%v", backend, ListBackends())
	}

	cb, err := ctor(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to construct clipboard backend %q: %w", backend, err)
	}
	if cb == nil {
		return nil, errors.New("clipboard constructor returned nil")
	}
	return cb, nil
}

// ListBackends returns the registered backend names.
func ListBackends() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	return out
}
