package controller

import (
	"time"

	"github.com/raysh454/scrapeform/internal/model"
)

type Config struct {
	// DefaultFormat is the output format before the user picks one.
	DefaultFormat model.OutputFormat

	// CopyAckDuration is how long the copy button reads CopiedLabel.
	CopyAckDuration time.Duration

	CopyLabel   string
	CopiedLabel string
}

// DefaultConfig returns the stock labels, json output and a 2s acknowledgement.
func DefaultConfig() Config {
	return Config{
		DefaultFormat:   model.FormatJSON,
		CopyAckDuration: 2 * time.Second,
		CopyLabel:       "Copy",
		CopiedLabel:     "Copied!",
	}
}
