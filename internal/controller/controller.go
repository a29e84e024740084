// Package controller owns the form's request lifecycle: validating input,
// calling the producer, holding the most recent result and serving copy and
// download of it in the selected format.
package controller

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/raysh454/scrapeform/internal/clipboard"
	"github.com/raysh454/scrapeform/internal/formatter"
	"github.com/raysh454/scrapeform/internal/logging"
	"github.com/raysh454/scrapeform/internal/model"
	"github.com/raysh454/scrapeform/internal/producer"
	"github.com/raysh454/scrapeform/internal/staging"
)

// ErrBusy is returned by Submit while another submission is in flight.
var ErrBusy = errors.New("a scrape is already in progress")

// Staging holds download payloads until the trigger has consumed them.
type Staging interface {
	Stage(name string, data []byte) (string, error)
	Open(id string) (*staging.Blob, error)
	Revoke(id string) error
}

// Download describes a staged payload handed to a DownloadTrigger.
type Download struct {
	ID          string
	Filename    string
	ContentType string
	Format      model.OutputFormat
	Size        int

	// Open reads the staged payload. It fails once the download has been
	// revoked, which happens as soon as Trigger returns.
	Open func() (*staging.Blob, error)
}

// DownloadTrigger hands a payload to the user, e.g. as an HTTP attachment.
type DownloadTrigger interface {
	Trigger(ctx context.Context, d Download) error
}

type display struct {
	text    string
	isError bool
}

// Controller is safe for concurrent use. Only one submission runs at a time.
type Controller struct {
	cfg       Config
	producer  producer.Producer
	clipboard clipboard.Clipboard
	staging   Staging
	logger    logging.Logger
	now       func() time.Time
	handlers  map[IntentKind]handler

	mu           sync.Mutex
	result       *model.ScrapeResult
	format       model.OutputFormat
	display      display
	state        State
	loading      bool
	input        model.FormInput
	submissionID string
	copiedUntil  time.Time
	revertTimer  *time.Timer
	subs         map[int]chan Event
	nextSub      int
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func New(cfg Config, p producer.Producer, cb clipboard.Clipboard, st Staging, logger logging.Logger, opts ...Option) *Controller {
	def := DefaultConfig()
	if cfg.CopyLabel == "" {
		cfg.CopyLabel = def.CopyLabel
	}
	if cfg.CopiedLabel == "" {
		cfg.CopiedLabel = def.CopiedLabel
	}
	if cfg.CopyAckDuration <= 0 {
		cfg.CopyAckDuration = def.CopyAckDuration
	}

	c := &Controller{
		cfg:       cfg,
		producer:  p,
		clipboard: cb,
		staging:   st,
		logger:    logger.With(logging.Field{Key: "component", Value: "controller"}),
		now:       time.Now,
		format:    model.ParseFormat(string(cfg.DefaultFormat)),
		state:     StateIdle,
		subs:      make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.bindHandlers()
	return c
}

// Submit validates in, runs the producer and displays the outcome. Loading
// is cleared on every path once the producer has settled.
func (c *Controller) Submit(ctx context.Context, in model.FormInput) error {
	req, reqErr := model.NewScrapeRequest(in)

	c.mu.Lock()
	// Validation runs before the busy check so a blank URL is always
	// reported, even while another scrape is in flight.
	if reqErr != nil {
		c.input = cloneInput(in)
		c.showErrorLocked(reqErr)
		c.emitLocked(EventState)
		c.mu.Unlock()
		c.logger.Info("rejected submission", logging.Field{Key: "error", Value: reqErr.Error()})
		return reqErr
	}
	if c.loading {
		c.mu.Unlock()
		return ErrBusy
	}
	c.input = cloneInput(in)
	if in.Format != "" {
		c.format = model.ParseFormat(in.Format)
	}

	id := uuid.NewString()
	c.submissionID = id
	c.loading = true
	c.state = StateLoading
	c.display = display{}
	c.emitLocked(EventState)
	c.mu.Unlock()

	log := c.logger.With(logging.Field{Key: "submission_id", Value: id})
	log.Info("scrape started",
		logging.Field{Key: "url", Value: req.URL},
		logging.Field{Key: "selector", Value: req.Selector},
		logging.Field{Key: "element_types", Value: req.ElementTypes})

	defer c.finishLoading()

	res, err := c.produce(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.showErrorLocked(err)
		c.emitLocked(EventState)
		log.Warn("scrape failed", logging.Field{Key: "error", Value: err.Error()})
		return err
	}

	c.result = res
	c.state = StateSuccess
	c.display = display{text: formatter.Format(res, c.format)}
	c.emitLocked(EventState)
	log.Info("scrape finished", logging.Field{Key: "categories", Value: res.Len()})
	return nil
}

func cloneInput(in model.FormInput) model.FormInput {
	in.Elements = slices.Clone(in.Elements)
	return in
}

func (c *Controller) finishLoading() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	c.emitLocked(EventState)
}

// produce calls the producer and normalizes every failure, including a
// panic, into a producer error.
func (c *Controller) produce(ctx context.Context, req model.ScrapeRequest) (res *model.ScrapeResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = model.NewProducerError(fmt.Sprintf("Scrape failed: %v", r), nil)
		}
	}()

	res, err = c.producer.Produce(ctx, req)
	switch {
	case err != nil && !model.IsKind(err, model.KindProducer):
		return nil, model.NewProducerError(err.Error(), err)
	case err != nil:
		return nil, err
	case res == nil:
		return nil, model.NewProducerError("Scrape returned no data", nil)
	}
	return res, nil
}

// SelectFormat sets the output format used by display, copy and download.
// A successful result on display is re-rendered in the new format.
func (c *Controller) SelectFormat(f model.OutputFormat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.format = model.ParseFormat(string(f))
	if c.result != nil && c.state == StateSuccess {
		c.display = display{text: formatter.Format(c.result, c.format)}
	}
	c.emitLocked(EventFormat)
}

// Copy writes the current result, in the current format, to the clipboard.
// It reports false without touching the clipboard when there is no result.
func (c *Controller) Copy(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if c.result == nil {
		c.mu.Unlock()
		return false, nil
	}
	text := formatter.Format(c.result, c.format)
	c.mu.Unlock()

	if err := c.clipboard.WriteText(ctx, text); err != nil {
		cerr := model.NewClipboardError(err)
		c.mu.Lock()
		c.showErrorLocked(cerr)
		c.emitLocked(EventState)
		c.mu.Unlock()
		c.logger.Warn("copy failed", logging.Field{Key: "error", Value: err.Error()})
		return true, cerr
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.copiedUntil = c.now().Add(c.cfg.CopyAckDuration)
	if c.revertTimer != nil {
		c.revertTimer.Stop()
	}
	c.revertTimer = time.AfterFunc(c.cfg.CopyAckDuration, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.emitLocked(EventCopyLabel)
	})
	c.emitLocked(EventCopyLabel)
	c.logger.Info("copied result", logging.Field{Key: "bytes", Value: len(text)})
	return true, nil
}

// Download stages the current result and passes it to trigger. The staged
// payload is revoked as soon as trigger returns, whatever the outcome.
// It reports false without calling trigger when there is no result.
func (c *Controller) Download(ctx context.Context, trigger DownloadTrigger) (bool, error) {
	if trigger == nil {
		return false, fmt.Errorf("nil download trigger")
	}

	c.mu.Lock()
	if c.result == nil {
		c.mu.Unlock()
		return false, nil
	}
	format := c.format
	text := formatter.Format(c.result, format)
	c.mu.Unlock()

	filename := format.Filename()
	id, err := c.staging.Stage(filename, []byte(text))
	if err != nil {
		return true, c.failDownload(err)
	}
	defer func() {
		if err := c.staging.Revoke(id); err != nil {
			c.logger.Warn("revoking staged download", logging.Field{Key: "id", Value: id}, logging.Field{Key: "error", Value: err.Error()})
		}
	}()

	d := Download{
		ID:          id,
		Filename:    filename,
		ContentType: "text/plain; charset=utf-8",
		Format:      format,
		Size:        len(text),
		Open:        func() (*staging.Blob, error) { return c.staging.Open(id) },
	}
	if err := trigger.Trigger(ctx, d); err != nil {
		return true, c.failDownload(err)
	}
	c.logger.Info("triggered download", logging.Field{Key: "filename", Value: filename}, logging.Field{Key: "bytes", Value: len(text)})
	return true, nil
}

func (c *Controller) failDownload(err error) error {
	derr := model.NewDownloadError(err)
	c.mu.Lock()
	c.showErrorLocked(derr)
	c.emitLocked(EventState)
	c.mu.Unlock()
	c.logger.Warn("download failed", logging.Field{Key: "error", Value: err.Error()})
	return derr
}

// showErrorLocked puts err on display. The stored result is kept.
func (c *Controller) showErrorLocked(err error) {
	c.state = StateError
	c.display = display{text: model.UserMessage(err), isError: true}
}

func (c *Controller) copyLabelLocked() string {
	if c.now().Before(c.copiedUntil) {
		return c.cfg.CopiedLabel
	}
	return c.cfg.CopyLabel
}

// View returns a snapshot of the current page state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	in := cloneInput(c.input)
	return View{
		State:        c.state,
		Loading:      c.loading,
		Format:       c.format,
		Output:       c.display.text,
		IsError:      c.display.isError,
		HasResult:    c.result != nil,
		CopyLabel:    c.copyLabelLocked(),
		SubmissionID: c.submissionID,
		Input:        in,
	}
}

// Output returns the current result in format f, or false when there is
// no result. The selected format is not changed.
func (c *Controller) Output(f model.OutputFormat) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return "", false
	}
	return formatter.Format(c.result, f), true
}

// Close stops the copy-label timer and ends all subscriptions.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.revertTimer != nil {
		c.revertTimer.Stop()
	}
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}
