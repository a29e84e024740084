package app

import (
	"time"

	"github.com/raysh454/scrapeform/internal/clipboard"
	"github.com/raysh454/scrapeform/internal/controller"
	"github.com/raysh454/scrapeform/internal/producer"
	"github.com/raysh454/scrapeform/internal/render"
	"github.com/raysh454/scrapeform/internal/server"
)

// Config is the runtime configuration of the whole process. Each component
// keeps its own Config; this only groups them and adds process-level knobs.
type Config struct {
	Server     server.Config
	Producer   producer.Config
	Controller controller.Config
	Render     render.Config

	// ClipboardBackend names the clipboard backend ("system" or "memory").
	ClipboardBackend string

	// StagingDir is where download payloads are staged. Empty means a
	// fresh temporary directory that is removed on shutdown.
	StagingDir string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// ShutdownTimeout bounds the graceful HTTP shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server:           server.DefaultConfig(),
		Producer:         producer.DefaultConfig(),
		Controller:       controller.DefaultConfig(),
		Render:           render.DefaultConfig(),
		ClipboardBackend: clipboard.BackendSystem,
		LogLevel:         "info",
		ShutdownTimeout:  15 * time.Second,
	}
}
