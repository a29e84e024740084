// Package server exposes the form controller over HTTP: the HTML page, a
// small JSON API and a websocket stream of controller events.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/raysh454/scrapeform/internal/controller"
	"github.com/raysh454/scrapeform/internal/logging"
	"github.com/raysh454/scrapeform/internal/model"
	"github.com/raysh454/scrapeform/internal/render"
)

const wsWriteTimeout = 10 * time.Second

// Server is the HTTP + WebSocket surface for one Controller.
type Server struct {
	cfg      Config
	ctrl     *controller.Controller
	renderer *render.Renderer
	router   chi.Router
	upgrader websocket.Upgrader
	limiter  *rate.Limiter
	logger   logging.Logger
}

// NewServer builds a Server around ctrl. A nil logger logs to stdout.
func NewServer(cfg Config, ctrl *controller.Controller, renderer *render.Renderer, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewStdoutLogger("server")
	}
	if cfg.AllowedOrigin == "" {
		cfg.AllowedOrigin = "*"
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	s := &Server{
		cfg:      cfg,
		ctrl:     ctrl,
		renderer: renderer,
		router:   chi.NewRouter(),
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logger.With(logging.Field{Key: "component", Value: "server"}),
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}

	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)

	// CORS preflight
	r.Options("/api/scrape", s.optionsHandler("POST"))
	r.Options("/api/copy", s.optionsHandler("POST"))
	r.Options("/api/state", s.optionsHandler("GET"))
	r.Options("/api/result", s.optionsHandler("GET"))

	r.Get("/healthz", s.handleHealth)

	// HTML page
	r.Get("/", s.handleIndex)
	r.Group(func(r chi.Router) {
		r.Use(s.rateLimitMiddleware)
		r.Post("/scrape", s.handleScrapeForm)
		r.Post("/format", s.handleSelectFormat)
		r.Post("/copy", s.handleCopyForm)
		r.Get("/download", s.handleDownload)
	})

	// JSON API
	r.Get("/api/state", s.handleState)
	r.Get("/api/result", s.handleResult)
	r.Group(func(r chi.Router) {
		r.Use(s.rateLimitMiddleware)
		r.Post("/api/scrape", s.handleScrapeAPI)
		r.Post("/api/copy", s.handleCopyAPI)
	})

	// WebSocket for controller events
	r.Get("/ws/events", s.handleEventsWS)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.cfg.AllowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			s.logger.Warn("rate limited", logging.Field{Key: "path", Value: r.URL.Path})
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if s.cfg.AllowedOrigin == "*" || origin == "" || origin == s.cfg.AllowedOrigin {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && strings.EqualFold(u.Host, r.Host)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}

	if q := r.URL.Query(); len(q) > 0 {
		fields = append(fields, logging.Field{Key: "query", Value: q})
	}

	if r.Body != nil && r.Method == http.MethodPost {
		if bodyBytes, err := io.ReadAll(r.Body); err == nil {
			s.logger.Debug("http_request_body", logging.Field{Key: "path", Value: r.URL.Path}, logging.Field{Key: "body", Value: string(bodyBytes)})
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
	}

	ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
	s.router.ServeHTTP(ww, r)

	fields = append(fields,
		logging.Field{Key: "status", Value: ww.Status()},
		logging.Field{Key: "bytes", Value: ww.BytesWritten()},
		logging.Field{Key: "duration", Value: time.Since(start).String()})
	s.logger.Info("http_request", fields...)
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: 0, // allow streaming
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func viewResponse(v controller.View) ViewResponse {
	return ViewResponse{View: v, OutputEscaped: render.EscapeText(v.Output)}
}

// statusFor maps a controller error to an HTTP status for the JSON API.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, controller.ErrBusy):
		return http.StatusConflict
	case model.IsKind(err, model.KindValidation):
		return http.StatusBadRequest
	case model.IsKind(err, model.KindProducer):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// --- HTML handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, http.StatusOK)
}

func (s *Server) renderPage(w http.ResponseWriter, status int) {
	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, s.ctrl.View()); err != nil {
		s.logger.Error("rendering page", logging.Field{Key: "error", Value: err.Error()})
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleScrapeForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	in := model.FormInput{
		URL:      r.PostForm.Get("url"),
		Selector: r.PostForm.Get("selector"),
		Elements: r.PostForm["elements"],
		Format:   r.PostForm.Get("format"),
	}

	_, err := s.ctrl.Dispatch(r.Context(), controller.SubmitIntent{Input: in})
	if errors.Is(err, controller.ErrBusy) {
		s.logger.Info("submission rejected while busy")
		s.renderPage(w, http.StatusConflict)
		return
	}
	// Other failures are on display in the page.
	s.redirectHome(w, r)
}

func (s *Server) handleSelectFormat(w http.ResponseWriter, r *http.Request) {
	f := model.ParseFormat(r.FormValue("format"))
	_, _ = s.ctrl.Dispatch(r.Context(), controller.SelectFormatIntent{Format: f})
	s.logger.Info("selected format", logging.Field{Key: "format", Value: string(f)})
	s.redirectHome(w, r)
}

func (s *Server) handleCopyForm(w http.ResponseWriter, r *http.Request) {
	_, _ = s.ctrl.Dispatch(r.Context(), controller.CopyIntent{})
	s.redirectHome(w, r)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if f := r.URL.Query().Get("format"); f != "" {
		_, _ = s.ctrl.Dispatch(r.Context(), controller.SelectFormatIntent{Format: model.OutputFormat(f)})
	}

	trigger := &attachmentTrigger{w: w, r: r}
	out, err := s.ctrl.Dispatch(r.Context(), controller.DownloadIntent{Trigger: trigger})
	switch {
	case trigger.started:
		// The response is already on the wire.
	case !out.Performed:
		w.WriteHeader(http.StatusNoContent)
	case err != nil:
		s.logger.Warn("download failed", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, model.UserMessage(err))
	}
}

// attachmentTrigger serves a staged download as an HTTP attachment.
type attachmentTrigger struct {
	w       http.ResponseWriter
	r       *http.Request
	started bool
}

func (t *attachmentTrigger) Trigger(ctx context.Context, d controller.Download) error {
	blob, err := d.Open()
	if err != nil {
		return err
	}
	defer blob.Close()

	t.started = true
	h := t.w.Header()
	h.Set("Content-Type", d.ContentType)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": d.Filename}))
	h.Set("Cache-Control", "no-store")
	http.ServeContent(t.w, t.r, d.Filename, blob.ModTime, blob)
	return ctx.Err()
}

// --- JSON API handlers ---

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewResponse(s.ctrl.View()))
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	f := s.ctrl.View().Format
	if raw := r.URL.Query().Get("format"); raw != "" {
		f = model.ParseFormat(raw)
	}
	out, ok := s.ctrl.Output(f)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, ResultResponse{Format: f, Filename: f.Filename(), Output: out})
}

func (s *Server) handleScrapeAPI(w http.ResponseWriter, r *http.Request) {
	var body ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.logger.Warn("decoding scrape body", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	out, err := s.ctrl.Dispatch(r.Context(), controller.SubmitIntent{Input: body.formInput()})
	if errors.Is(err, controller.ErrBusy) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, statusFor(err), viewResponse(out.View))
}

func (s *Server) handleCopyAPI(w http.ResponseWriter, r *http.Request) {
	out, err := s.ctrl.Dispatch(r.Context(), controller.CopyIntent{})
	writeJSON(w, statusFor(err), CopyResponse{Performed: out.Performed, View: viewResponse(out.View)})
}

// WebSockets

func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	events, cancel := s.ctrl.Subscribe()
	defer cancel()

	if err := conn.WriteJSON(ViewMessage{Type: "view", View: s.ctrl.View()}); err != nil {
		return
	}

	// Clients never send anything; reading only notices the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(wsWriteTimeout))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				s.logger.Debug("websocket client gone", logging.Field{Key: "error", Value: err.Error()})
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
