package producer

import (
	"context"
	"fmt"
	"time"

	"github.com/raysh454/scrapeform/internal/logging"
	"github.com/raysh454/scrapeform/internal/model"
	"github.com/raysh454/scrapeform/internal/utils"
)

// Stub answers every valid request with Exemplar after a fixed delay.
// It ignores element types and selector.
type Stub struct {
	delay  time.Duration
	target utils.TargetOptions
	logger logging.Logger
}

func NewStub(cfg Config, logger logging.Logger) *Stub {
	return &Stub{
		delay:  cfg.Delay,
		target: cfg.Target,
		logger: logger.With(logging.Field{Key: "component", Value: "producer"}),
	}
}

func (s *Stub) Produce(ctx context.Context, req model.ScrapeRequest) (*model.ScrapeResult, error) {
	target, err := utils.ParseTarget(req.URL, s.target)
	if err != nil {
		s.logger.Warn("rejecting target",
			logging.Field{Key: "url", Value: req.URL},
			logging.Field{Key: "error", Value: err.Error()})
		return nil, model.NewProducerError(fmt.Sprintf("Invalid target %q: %v", req.URL, err), err)
	}

	s.logger.Debug("producing result",
		logging.Field{Key: "target", Value: target.String()},
		logging.Field{Key: "selector", Value: req.Selector},
		logging.Field{Key: "element_types", Value: req.ElementTypes},
		logging.Field{Key: "delay", Value: s.delay.String()})

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, model.NewProducerError("Scrape canceled", ctx.Err())
		}
	}

	return Exemplar(), nil
}

// Exemplar is the fixed result returned by Stub. Each call returns a new copy.
func Exemplar() *model.ScrapeResult {
	r := model.NewScrapeResult()
	r.Set(string(model.ElementHeadings),
		"Welcome to Example Site",
		"Featured Content",
		"Latest Articles",
	)
	r.Set(string(model.ElementLinks),
		"https://example.com/article1",
		"https://example.com/article2",
		"https://example.com/about",
	)
	r.Set(string(model.ElementImages),
		"header-image.jpg",
		"featured-1.jpg",
		"featured-2.jpg",
	)
	r.Set(string(model.ElementText),
		"Welcome to our website!",
		"Check out our latest articles and updates.",
		"Stay informed with our newsletter.",
	)
	return r
}
