// Package producer yields ScrapeResults for submitted requests.
//
// The only backend is Stub: it checks that the target looks scrapeable,
// waits a fixed delay and returns a canned result. It stands in for a real
// scraping service.
package producer

import (
	"context"

	"github.com/raysh454/scrapeform/internal/logging"
	"github.com/raysh454/scrapeform/internal/model"
)

// Producer turns a request into a result. Failures should be
// *model.Error values of kind model.KindProducer.
type Producer interface {
	Produce(ctx context.Context, req model.ScrapeRequest) (*model.ScrapeResult, error)
}

// New builds the configured producer chain.
func New(cfg Config, logger logging.Logger) Producer {
	var p Producer = NewStub(cfg, logger)
	if cfg.FilterCategories {
		p = WithCategoryFilter(p)
	}
	return p
}

// filtering restricts results to the requested element types.
type filtering struct {
	next Producer
}

// WithCategoryFilter wraps p so that a request naming element types only
// gets those categories back. Requests with no element types are untouched.
func WithCategoryFilter(p Producer) Producer {
	return &filtering{next: p}
}

func (f *filtering) Produce(ctx context.Context, req model.ScrapeRequest) (*model.ScrapeResult, error) {
	res, err := f.next.Produce(ctx, req)
	if err != nil {
		return nil, err
	}
	return res.Filter(req.ElementTypes), nil
}
