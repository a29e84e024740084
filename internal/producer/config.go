package producer

import (
	"time"

	"github.com/raysh454/scrapeform/internal/utils"
)

type Config struct {
	// Delay is how long Stub takes to answer.
	Delay time.Duration

	// FilterCategories drops categories that were not requested.
	FilterCategories bool

	// Target controls which URLs are accepted.
	Target utils.TargetOptions
}

// DefaultConfig returns the stub's stock behaviour: 1.5s delay, no filtering.
func DefaultConfig() Config {
	return Config{
		Delay:  1500 * time.Millisecond,
		Target: utils.DefaultTargetOptions(),
	}
}
