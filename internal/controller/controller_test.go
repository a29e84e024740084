package controller_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/raysh454/scrapeform/internal/controller"
	"github.com/raysh454/scrapeform/internal/formatter"
	"github.com/raysh454/scrapeform/internal/model"
	"github.com/raysh454/scrapeform/internal/staging"
	"github.com/raysh454/scrapeform/internal/testutil"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

type fixture struct {
	ctrl     *controller.Controller
	producer *testutil.DummyProducer
	clip     *testutil.DummyClipboard
	store    *staging.Store
	clock    *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := staging.New(filepath.Join(t.TempDir(), "staging"))
	if err != nil {
		t.Fatalf("staging.New: %v", err)
	}
	f := &fixture{
		producer: &testutil.DummyProducer{},
		clip:     &testutil.DummyClipboard{},
		store:    store,
		clock:    &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	f.ctrl = controller.New(controller.DefaultConfig(), f.producer, f.clip, store, &testutil.DummyLogger{},
		controller.WithClock(f.clock.Now))
	t.Cleanup(func() {
		f.ctrl.Close()
		_ = store.Close()
	})
	return f
}

func (f *fixture) submitOK(t *testing.T) {
	t.Helper()
	if err := f.ctrl.Submit(context.Background(), model.FormInput{URL: "https://example.com"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
}

// ─── Submit ────────────────────────────────────────────────────────────

func TestSubmit_EmptyURLNeverCallsProducer(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	for _, url := range []string{"", "  "} {
		err := f.ctrl.Submit(context.Background(), model.FormInput{URL: url})
		if !model.IsKind(err, model.KindValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	}

	if f.producer.Calls() != 0 {
		t.Errorf("expected producer not to be called, got %d calls", f.producer.Calls())
	}
	v := f.ctrl.View()
	if !v.IsError || v.Output != model.MsgInvalidURL {
		t.Errorf("expected validation message on display, got %+v", v)
	}
	if v.Loading || v.State != controller.StateError {
		t.Errorf("expected settled error state, got state=%s loading=%v", v.State, v.Loading)
	}
}

func TestSubmit_SuccessDisplaysFormattedResult(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	err := f.ctrl.Submit(context.Background(), model.FormInput{
		URL:      "https://example.com",
		Selector: ".post",
		Elements: []string{"links", "headings"},
		Format:   "csv",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	v := f.ctrl.View()
	if v.State != controller.StateSuccess || v.Loading || v.IsError || !v.HasResult {
		t.Fatalf("unexpected view: %+v", v)
	}
	if v.Output != "a,b\n1,x\n2,\n" {
		t.Errorf("expected csv output, got %q", v.Output)
	}
	if v.SubmissionID == "" {
		t.Error("expected a submission id")
	}

	req := f.producer.Requests[0]
	if req.Selector != ".post" || len(req.ElementTypes) != 2 || req.ElementTypes[0] != model.ElementHeadings {
		t.Errorf("unexpected request passed to producer: %+v", req)
	}
}

func TestSubmit_ProducerFailureClearsLoading(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.producer.Err = model.NewProducerError("target unreachable", nil)

	err := f.ctrl.Submit(context.Background(), model.FormInput{URL: "https://example.com"})
	if !model.IsKind(err, model.KindProducer) {
		t.Fatalf("expected producer error, got %v", err)
	}

	v := f.ctrl.View()
	if v.Loading {
		t.Error("loading must be cleared after failure")
	}
	if !v.IsError || v.Output != "target unreachable" {
		t.Errorf("expected error message on display, got %+v", v)
	}
	if v.HasResult {
		t.Error("expected no stored result")
	}
}

func TestSubmit_PlainErrorBecomesProducerError(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	cause := errors.New("dial tcp: connection refused")
	f.producer.Err = cause

	err := f.ctrl.Submit(context.Background(), model.FormInput{URL: "https://example.com"})
	if !model.IsKind(err, model.KindProducer) || !errors.Is(err, cause) {
		t.Fatalf("expected producer error wrapping cause, got %v", err)
	}
	if got := f.ctrl.View().Output; got != cause.Error() {
		t.Errorf("expected cause message on display, got %q", got)
	}
}

func TestSubmit_ProducerPanicClearsLoading(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.producer.Panic = "boom"

	err := f.ctrl.Submit(context.Background(), model.FormInput{URL: "https://example.com"})
	if !model.IsKind(err, model.KindProducer) {
		t.Fatalf("expected producer error, got %v", err)
	}
	if f.ctrl.View().Loading {
		t.Error("loading must be cleared after a panic")
	}
}

func TestSubmit_FailureKeepsPreviousResult(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.submitOK(t)

	f.producer.Err = model.NewProducerError("nope", nil)
	_ = f.ctrl.Submit(context.Background(), model.FormInput{URL: "https://example.com"})

	if !f.ctrl.View().HasResult {
		t.Fatal("expected previous result to survive a failed submission")
	}
	if performed, err := f.ctrl.Copy(context.Background()); !performed || err != nil {
		t.Errorf("expected copy of previous result, got performed=%v err=%v", performed, err)
	}
}

func TestSubmit_LoadingWhileInFlightAndBusy(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.producer.Release = make(chan struct{})
	f.producer.Started = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		done <- f.ctrl.Submit(context.Background(), model.FormInput{URL: "https://example.com"})
	}()
	<-f.producer.Started

	v := f.ctrl.View()
	if !v.Loading || v.State != controller.StateLoading || v.Output != "" {
		t.Errorf("expected loading with cleared display, got %+v", v)
	}

	if err := f.ctrl.Submit(context.Background(), model.FormInput{URL: "https://other.example"}); !errors.Is(err, controller.ErrBusy) {
		t.Errorf("expected ErrBusy for overlapping submission, got %v", err)
	}

	close(f.producer.Release)
	if err := <-done; err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if f.ctrl.View().Loading {
		t.Error("loading must be cleared after success")
	}
	if f.producer.Calls() != 1 {
		t.Errorf("expected exactly one producer call, got %d", f.producer.Calls())
	}
}

func TestSubmit_CanceledContext(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.producer.Release = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.ctrl.Submit(ctx, model.FormInput{URL: "https://example.com"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if f.ctrl.View().Loading {
		t.Error("loading must be cleared after cancellation")
	}
}

func TestSubmit_EmptyURLWhileBusyShowsValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.producer.Release = make(chan struct{})
	f.producer.Started = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		done <- f.ctrl.Submit(context.Background(), model.FormInput{URL: "https://example.com"})
	}()
	<-f.producer.Started

	err := f.ctrl.Submit(context.Background(), model.FormInput{URL: ""})
	if !model.IsKind(err, model.KindValidation) {
		t.Fatalf("expected validation error while busy, got %v", err)
	}
	v := f.ctrl.View()
	if !v.IsError || v.Output != model.MsgInvalidURL {
		t.Errorf("expected validation message on display, got %+v", v)
	}
	if !v.Loading {
		t.Error("in-flight scrape must stay loading")
	}

	close(f.producer.Release)
	if err := <-done; err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if f.producer.Calls() != 1 {
		t.Errorf("expected one producer call, got %d", f.producer.Calls())
	}
	if f.ctrl.View().Loading {
		t.Error("loading must be cleared once the scrape settles")
	}
}

// ─── SelectFormat ──────────────────────────────────────────────────────

func TestSelectFormat_RerendersWithoutProducing(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.submitOK(t)

	f.ctrl.SelectFormat(model.FormatText)

	v := f.ctrl.View()
	if v.Format != model.FormatText {
		t.Errorf("expected text format, got %s", v.Format)
	}
	if v.Output != formatter.Text(testutil.SampleResult()) {
		t.Errorf("expected text rendering, got %q", v.Output)
	}
	if f.producer.Calls() != 1 {
		t.Errorf("expected no extra producer calls, got %d", f.producer.Calls())
	}
}

func TestSelectFormat_UnknownFallsBackToJSON(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.ctrl.SelectFormat("yaml")
	if got := f.ctrl.View().Format; got != model.FormatJSON {
		t.Errorf("expected json fallback, got %s", got)
	}
}

func TestSelectFormat_KeepsErrorOnDisplay(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.submitOK(t)
	_ = f.ctrl.Submit(context.Background(), model.FormInput{})

	f.ctrl.SelectFormat(model.FormatCSV)
	v := f.ctrl.View()
	if !v.IsError || v.Output != model.MsgInvalidURL {
		t.Errorf("expected validation message to stay, got %+v", v)
	}
}

// ─── Copy ──────────────────────────────────────────────────────────────

func TestCopy_NoResultIsNoop(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	performed, err := f.ctrl.Copy(context.Background())
	if performed || err != nil {
		t.Errorf("expected no-op, got performed=%v err=%v", performed, err)
	}
	if f.clip.WriteCount() != 0 {
		t.Errorf("expected no clipboard writes, got %d", f.clip.WriteCount())
	}
}

func TestCopy_WritesCurrentFormatAndAcknowledges(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.submitOK(t)
	f.ctrl.SelectFormat(model.FormatCSV)

	performed, err := f.ctrl.Copy(context.Background())
	if !performed || err != nil {
		t.Fatalf("Copy: performed=%v err=%v", performed, err)
	}
	if f.clip.Writes[0] != "a,b\n1,x\n2,\n" {
		t.Errorf("expected csv on clipboard, got %q", f.clip.Writes[0])
	}

	if got := f.ctrl.View().CopyLabel; got != "Copied!" {
		t.Errorf("expected acknowledgement label, got %q", got)
	}
	f.clock.Advance(1999 * time.Millisecond)
	if got := f.ctrl.View().CopyLabel; got != "Copied!" {
		t.Errorf("expected label to hold until 2s, got %q", got)
	}
	f.clock.Advance(time.Millisecond)
	if got := f.ctrl.View().CopyLabel; got != "Copy" {
		t.Errorf("expected label to revert after 2s, got %q", got)
	}
}

func TestCopy_FailureIsDisplayedAndKeepsResult(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.submitOK(t)
	f.clip.Err = errors.New("no display")

	performed, err := f.ctrl.Copy(context.Background())
	if !performed || !model.IsKind(err, model.KindClipboard) {
		t.Fatalf("expected clipboard error, got performed=%v err=%v", performed, err)
	}

	v := f.ctrl.View()
	if !v.IsError || v.Output != model.MsgClipboardFailed {
		t.Errorf("expected clipboard message, got %+v", v)
	}
	if !v.HasResult || v.CopyLabel != "Copy" {
		t.Errorf("expected result kept and label unchanged, got %+v", v)
	}
}

// ─── Download ──────────────────────────────────────────────────────────

func TestDownload_NoResultIsNoop(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	trigger := &testutil.DummyTrigger{}

	performed, err := f.ctrl.Download(context.Background(), trigger)
	if performed || err != nil {
		t.Errorf("expected no-op, got performed=%v err=%v", performed, err)
	}
	if trigger.Count() != 0 {
		t.Errorf("expected no download triggered, got %d", trigger.Count())
	}
}

func TestDownload_StagesFormattedPayloadAndRevokes(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.submitOK(t)
	f.ctrl.SelectFormat(model.FormatText)
	trigger := &testutil.DummyTrigger{}

	performed, err := f.ctrl.Download(context.Background(), trigger)
	if !performed || err != nil {
		t.Fatalf("Download: performed=%v err=%v", performed, err)
	}

	d := trigger.Downloads[0]
	if d.Filename != "scraped-data.text" {
		t.Errorf("expected scraped-data.text, got %q", d.Filename)
	}
	if trigger.Contents[0] != formatter.Text(testutil.SampleResult()) {
		t.Errorf("unexpected payload %q", trigger.Contents[0])
	}
	if f.store.Len() != 0 {
		t.Errorf("expected staged payload to be revoked, %d left", f.store.Len())
	}
	if _, err := d.Open(); !errors.Is(err, staging.ErrNotFound) {
		t.Errorf("expected revoked payload to be unreadable, got %v", err)
	}
}

func TestDownload_TriggerFailureStillRevokes(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.submitOK(t)
	trigger := &testutil.DummyTrigger{Err: errors.New("connection reset")}

	performed, err := f.ctrl.Download(context.Background(), trigger)
	if !performed || !model.IsKind(err, model.KindDownload) {
		t.Fatalf("expected download error, got performed=%v err=%v", performed, err)
	}
	if f.store.Len() != 0 {
		t.Errorf("expected staged payload to be revoked after failure, %d left", f.store.Len())
	}
	v := f.ctrl.View()
	if !v.IsError || v.Output != model.MsgDownloadFailed || !v.HasResult {
		t.Errorf("expected download message with result kept, got %+v", v)
	}
}

func TestDownload_NilTrigger(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.submitOK(t)
	if _, err := f.ctrl.Download(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil trigger")
	}
}

// ─── Dispatch ──────────────────────────────────────────────────────────

func TestDispatch_RoutesIntents(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.ctrl.Dispatch(ctx, controller.CopyIntent{})
	if err != nil || out.Performed {
		t.Fatalf("expected copy no-op before any result, got %+v %v", out, err)
	}

	out, err = f.ctrl.Dispatch(ctx, controller.SubmitIntent{Input: model.FormInput{URL: "https://example.com"}})
	if err != nil || out.View.State != controller.StateSuccess {
		t.Fatalf("submit via dispatch: %+v %v", out, err)
	}

	out, _ = f.ctrl.Dispatch(ctx, controller.SelectFormatIntent{Format: model.FormatCSV})
	if out.View.Format != model.FormatCSV {
		t.Errorf("expected csv after select, got %s", out.View.Format)
	}

	trigger := &testutil.DummyTrigger{}
	out, err = f.ctrl.Dispatch(ctx, controller.DownloadIntent{Trigger: trigger})
	if err != nil || !out.Performed || trigger.Count() != 1 {
		t.Errorf("expected one download, got %+v %v", out, err)
	}

	if _, err := f.ctrl.Dispatch(ctx, nil); err == nil {
		t.Error("expected error for nil intent")
	}
}

func TestDispatch_PointerIntent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.ctrl.Dispatch(ctx, &controller.SubmitIntent{Input: model.FormInput{URL: "https://example.com"}})
	if err != nil || !out.Performed || out.View.State != controller.StateSuccess {
		t.Fatalf("submit via pointer intent: %+v %v", out, err)
	}

	out, err = f.ctrl.Dispatch(ctx, &controller.SelectFormatIntent{Format: model.FormatText})
	if err != nil || out.View.Format != model.FormatText {
		t.Errorf("select via pointer intent: %+v %v", out, err)
	}

	out, err = f.ctrl.Dispatch(ctx, &controller.CopyIntent{})
	if err != nil || !out.Performed {
		t.Errorf("copy via pointer intent: %+v %v", out, err)
	}

	trigger := &testutil.DummyTrigger{}
	out, err = f.ctrl.Dispatch(ctx, &controller.DownloadIntent{Trigger: trigger})
	if err != nil || !out.Performed || trigger.Count() != 1 {
		t.Errorf("download via pointer intent: %+v %v", out, err)
	}

	var nilSubmit *controller.SubmitIntent
	if _, err := f.ctrl.Dispatch(ctx, nilSubmit); err == nil {
		t.Error("expected error for nil pointer intent")
	}
}

// otherIntent reuses a known kind with a type the controller does not handle.
type otherIntent struct{}

func (otherIntent) Kind() controller.IntentKind { return controller.IntentSubmit }

func TestDispatch_UnexpectedIntentType(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.ctrl.Dispatch(context.Background(), otherIntent{})
	if err == nil || !strings.Contains(err.Error(), "unexpected intent type") {
		t.Fatalf("expected unexpected intent type error, got %v", err)
	}
	if f.producer.Calls() != 0 {
		t.Errorf("expected producer not called, got %d", f.producer.Calls())
	}
}

// ─── Events ────────────────────────────────────────────────────────────

func TestSubscribe_SeesLoadingThenSettled(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	events, cancel := f.ctrl.Subscribe()
	defer cancel()

	f.submitOK(t)

	var got []controller.Event
	for len(got) < 3 {
		select {
		case ev := <-events:
			got = append(got, ev)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for events, got %+v", got)
		}
	}

	if got[0].State != controller.StateLoading || !got[0].Loading {
		t.Errorf("expected loading event first, got %+v", got[0])
	}
	if got[1].State != controller.StateSuccess {
		t.Errorf("expected success event second, got %+v", got[1])
	}
	if got[2].Loading {
		t.Errorf("expected final event with loading cleared, got %+v", got[2])
	}
	if got[0].SubmissionID == "" || got[0].SubmissionID != got[2].SubmissionID {
		t.Errorf("expected one submission id across events")
	}
}

func TestSubscribe_CopyLabelRevertEvent(t *testing.T) {
	t.Parallel()
	store, err := staging.New(filepath.Join(t.TempDir(), "staging"))
	if err != nil {
		t.Fatalf("staging.New: %v", err)
	}
	cfg := controller.DefaultConfig()
	cfg.CopyAckDuration = 20 * time.Millisecond
	ctrl := controller.New(cfg, &testutil.DummyProducer{}, &testutil.DummyClipboard{}, store, &testutil.DummyLogger{})
	defer ctrl.Close()

	if err := ctrl.Submit(context.Background(), model.FormInput{URL: "https://example.com"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	events, cancel := ctrl.Subscribe()
	defer cancel()

	if _, err := ctrl.Copy(context.Background()); err != nil {
		t.Fatalf("Copy: %v", err)
	}

	var labels []string
	deadline := time.After(time.Second)
	for len(labels) < 2 {
		select {
		case ev := <-events:
			if ev.Type == controller.EventCopyLabel {
				labels = append(labels, ev.CopyLabel)
			}
		case <-deadline:
			t.Fatalf("timed out waiting for copy label events, got %v", labels)
		}
	}
	if labels[0] != "Copied!" || labels[1] != "Copy" {
		t.Errorf("expected [Copied! Copy], got %v", labels)
	}
}

func TestSubscribe_CancelClosesChannel(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	events, cancel := f.ctrl.Subscribe()
	cancel()
	cancel()

	if _, ok := <-events; ok {
		t.Error("expected closed channel after cancel")
	}
}
