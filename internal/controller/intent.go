package controller

import (
	"context"
	"fmt"

	"github.com/raysh454/scrapeform/internal/model"
)

// Intent is one user action. Each concrete type is routed by Dispatch to
// the matching Controller method.
type Intent interface {
	Kind() IntentKind
}

type IntentKind string

const (
	IntentSubmit       IntentKind = "submit"
	IntentSelectFormat IntentKind = "select_format"
	IntentCopy         IntentKind = "copy"
	IntentDownload     IntentKind = "download"
)

// SubmitIntent is the form being submitted.
type SubmitIntent struct {
	Input model.FormInput
}

// SelectFormatIntent changes the output format.
type SelectFormatIntent struct {
	Format model.OutputFormat
}

// CopyIntent copies the current result to the clipboard.
type CopyIntent struct{}

// DownloadIntent offers the current result as a file through Trigger.
type DownloadIntent struct {
	Trigger DownloadTrigger
}

func (SubmitIntent) Kind() IntentKind       { return IntentSubmit }
func (SelectFormatIntent) Kind() IntentKind { return IntentSelectFormat }
func (CopyIntent) Kind() IntentKind         { return IntentCopy }
func (DownloadIntent) Kind() IntentKind     { return IntentDownload }

// Outcome reports what Dispatch did.
type Outcome struct {
	// Performed is false when the intent was a no-op (copy or download
	// without a result).
	Performed bool
	View      View
}

type handler func(ctx context.Context, in Intent) (bool, error)

func (c *Controller) bindHandlers() {
	c.handlers = map[IntentKind]handler{
		IntentSubmit: func(ctx context.Context, in Intent) (bool, error) {
			switch v := in.(type) {
			case SubmitIntent:
				return true, c.Submit(ctx, v.Input)
			case *SubmitIntent:
				return true, c.Submit(ctx, v.Input)
			}
			return false, unexpectedIntent(in)
		},
		IntentSelectFormat: func(_ context.Context, in Intent) (bool, error) {
			switch v := in.(type) {
			case SelectFormatIntent:
				c.SelectFormat(v.Format)
			case *SelectFormatIntent:
				c.SelectFormat(v.Format)
			default:
				return false, unexpectedIntent(in)
			}
			return true, nil
		},
		IntentCopy: func(ctx context.Context, _ Intent) (bool, error) {
			return c.Copy(ctx)
		},
		IntentDownload: func(ctx context.Context, in Intent) (bool, error) {
			switch v := in.(type) {
			case DownloadIntent:
				return c.Download(ctx, v.Trigger)
			case *DownloadIntent:
				return c.Download(ctx, v.Trigger)
			}
			return false, unexpectedIntent(in)
		},
	}
}

func unexpectedIntent(in Intent) error {
	return fmt.Errorf("unexpected intent type %T", in)
}

// Dispatch runs in and returns the resulting view. The error is the same
// one the view displays, if any.
func (c *Controller) Dispatch(ctx context.Context, in Intent) (Outcome, error) {
	if in == nil || isNilPointer(in) {
		return Outcome{View: c.View()}, fmt.Errorf("nil intent")
	}
	h, ok := c.handlers[in.Kind()]
	if !ok {
		return Outcome{View: c.View()}, fmt.Errorf("unknown intent %q", in.Kind())
	}
	performed, err := h(ctx, in)
	return Outcome{Performed: performed, View: c.View()}, err
}

func isNilPointer(in Intent) bool {
	switch v := in.(type) {
	case *SubmitIntent:
		return v == nil
	case *SelectFormatIntent:
		return v == nil
	case *CopyIntent:
		return v == nil
	case *DownloadIntent:
		return v == nil
	}
	return false
}
