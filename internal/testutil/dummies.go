// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without real I/O or side effects.
package testutil

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/raysh454/scrapeform/internal/controller"
	"github.com/raysh454/scrapeform/internal/logging"
	"github.com/raysh454/scrapeform/internal/model"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...logging.Field) logging.Logger { return l }

// ─── Producer ──────────────────────────────────────────────────────────

// DummyProducer implements producer.Producer.
// By default it returns a two-category result immediately.
// Set Err to fail, Panic to panic, Delay to slow it down, or Release to
// block until the channel is closed.
type DummyProducer struct {
	Result  *model.ScrapeResult
	Err     error
	Panic   any
	Delay   time.Duration
	Release chan struct{}

	// Started is signalled (non-blocking) when Produce begins.
	Started chan struct{}

	mu       sync.Mutex
	Requests []model.ScrapeRequest
}

func (d *DummyProducer) Produce(ctx context.Context, req model.ScrapeRequest) (*model.ScrapeResult, error) {
	d.mu.Lock()
	d.Requests = append(d.Requests, req)
	d.mu.Unlock()

	if d.Started != nil {
		select {
		case d.Started <- struct{}{}:
		default:
		}
	}
	if d.Release != nil {
		select {
		case <-d.Release:
		case <-ctx.Done():
			return nil, model.NewProducerError("canceled", ctx.Err())
		}
	}
	if d.Delay > 0 {
		select {
		case <-time.After(d.Delay):
		case <-ctx.Done():
			return nil, model.NewProducerError("canceled", ctx.Err())
		}
	}
	if d.Panic != nil {
		panic(d.Panic)
	}
	if d.Err != nil {
		return nil, d.Err
	}
	if d.Result != nil {
		return d.Result.Clone(), nil
	}
	return SampleResult(), nil
}

// Calls returns how many times Produce was invoked.
func (d *DummyProducer) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Requests)
}

// SampleResult is {"a": ["1","2"], "b": ["x"]}.
func SampleResult() *model.ScrapeResult {
	r := model.NewScrapeResult()
	r.Set("a", "1", "2")
	r.Set("b", "x")
	return r
}

// ─── Clipboard ─────────────────────────────────────────────────────────

// DummyClipboard implements clipboard.Clipboard. Set Err to make writes fail.
type DummyClipboard struct {
	Err error

	mu     sync.Mutex
	Writes []string
}

func (d *DummyClipboard) WriteText(_ context.Context, text string) error {
	if d.Err != nil {
		return d.Err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Writes = append(d.Writes, text)
	return nil
}

// WriteCount returns the number of successful writes.
func (d *DummyClipboard) WriteCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Writes)
}

// ─── Download trigger ──────────────────────────────────────────────────

// DummyTrigger implements controller.DownloadTrigger. It reads the staged
// payload so tests can check it, then returns Err.
type DummyTrigger struct {
	Err error

	mu        sync.Mutex
	Downloads []controller.Download
	Contents  []string
}

func (d *DummyTrigger) Trigger(_ context.Context, dl controller.Download) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Downloads = append(d.Downloads, dl)

	blob, err := dl.Open()
	if err != nil {
		return err
	}
	defer blob.Close()
	data, err := io.ReadAll(blob)
	if err != nil {
		return err
	}
	d.Contents = append(d.Contents, string(data))
	return d.Err
}

// Count returns how many downloads were triggered.
func (d *DummyTrigger) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Downloads)
}
