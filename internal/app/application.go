package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/raysh454/scrapeform/internal/clipboard"
	"github.com/raysh454/scrapeform/internal/controller"
	"github.com/raysh454/scrapeform/internal/logging"
	"github.com/raysh454/scrapeform/internal/producer"
	"github.com/raysh454/scrapeform/internal/render"
	"github.com/raysh454/scrapeform/internal/server"
	"github.com/raysh454/scrapeform/internal/staging"
)

// Application is the global runtime state container. It owns the single
// Controller of the process and everything wired around it.
type Application struct {
	Config     *Config
	Logger     logging.Logger
	Controller *controller.Controller
	Server     *server.Server

	staging    *staging.Store
	tempDir    string
	httpServer *http.Server
}

// NewApplication wires producer, clipboard, staging, controller, renderer
// and server from cfg. A nil logger logs JSON to stdout at cfg.LogLevel.
func NewApplication(cfg *Config, logger logging.Logger) (*Application, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		l, err := logging.NewLogger(os.Stdout, "scrapeform", cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		logger = l
	}

	a := &Application{Config: cfg, Logger: logger}

	dir, err := expandPath(cfg.StagingDir)
	if err != nil {
		return nil, fmt.Errorf("expanding staging dir path: %w", err)
	}
	if dir == "" {
		if dir, err = os.MkdirTemp("", "scrapeform-staging-"); err != nil {
			return nil, fmt.Errorf("creating staging dir: %w", err)
		}
		a.tempDir = dir
	}
	if a.staging, err = staging.New(dir); err != nil {
		a.removeTempDir()
		return nil, err
	}

	cb, err := clipboard.New(cfg.ClipboardBackend, logger)
	if err != nil {
		a.removeTempDir()
		return nil, err
	}

	renderer, err := render.New(cfg.Render)
	if err != nil {
		a.removeTempDir()
		return nil, err
	}

	p := producer.New(cfg.Producer, logger)
	a.Controller = controller.New(cfg.Controller, p, cb, a.staging, logger)
	a.Server = server.NewServer(cfg.Server, a.Controller, renderer, logger)
	a.httpServer = a.Server.HTTPServer()
	return a, nil
}

// Run serves HTTP until ctx is canceled or the listener fails, then shuts
// down gracefully.
func (a *Application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.httpServer.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	a.Logger.Info("application starting",
		logging.Field{Key: "addr", Value: ln.Addr().String()},
		logging.Field{Key: "clipboard", Value: a.Config.ClipboardBackend},
		logging.Field{Key: "staging_dir", Value: a.staging.Dir()})

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		_ = a.Shutdown(context.Background())
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		return a.Shutdown(context.Background())
	}
}

// Shutdown stops the HTTP server, ends controller subscriptions and
// removes staged downloads.
func (a *Application) Shutdown(ctx context.Context) error {
	if a == nil {
		return errors.New("application is nil")
	}
	a.Logger.Info("application shutdown initiated")

	timeout := a.Config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var errs []error
	// Close the controller first so websocket streams end and do not hold
	// up the HTTP shutdown.
	a.Controller.Close()
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutting down http server: %w", err))
	}
	if err := a.staging.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing staging store: %w", err))
	}
	a.removeTempDir()
	return errors.Join(errs...)
}

// StagingDir returns the directory download payloads are staged in.
func (a *Application) StagingDir() string {
	return a.staging.Dir()
}

func (a *Application) removeTempDir() {
	if a.tempDir == "" {
		return
	}
	if err := os.RemoveAll(a.tempDir); err != nil {
		a.Logger.Warn("removing staging dir", logging.Field{Key: "path", Value: a.tempDir}, logging.Field{Key: "error", Value: err.Error()})
	}
}

func expandPath(p string) (string, error) {
	if len(p) > 0 && p[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, p[1:]), nil
	}
	return p, nil
}
