package model

import "strings"

// ElementType is one of the fixed categories a scrape can ask for.
type ElementType string

const (
	ElementHeadings ElementType = "headings"
	ElementLinks    ElementType = "links"
	ElementImages   ElementType = "images"
	ElementText     ElementType = "text"
)

// ElementTypes is the full vocabulary in display order.
var ElementTypes = []ElementType{ElementHeadings, ElementLinks, ElementImages, ElementText}

// ParseElementTypes keeps only known values, drops duplicates and returns
// them in vocabulary order.
func ParseElementTypes(raw []string) []ElementType {
	seen := make(map[ElementType]bool, len(raw))
	for _, r := range raw {
		seen[ElementType(strings.ToLower(strings.TrimSpace(r)))] = true
	}
	var out []ElementType
	for _, et := range ElementTypes {
		if seen[et] {
			out = append(out, et)
		}
	}
	return out
}

// FormInput is the raw form state at submission time.
type FormInput struct {
	URL      string   `json:"url"`
	Selector string   `json:"selector"`
	Elements []string `json:"elementTypes"`
	Format   string   `json:"format,omitempty"`
}

// Checked reports whether the element checkbox et was ticked.
func (in FormInput) Checked(et ElementType) bool {
	for _, e := range ParseElementTypes(in.Elements) {
		if e == et {
			return true
		}
	}
	return false
}

// ScrapeRequest is a validated submission. It is built once from FormInput
// and not modified afterwards.
type ScrapeRequest struct {
	URL          string
	Selector     string
	ElementTypes []ElementType
}

// NewScrapeRequest validates in and builds a ScrapeRequest. A blank URL
// yields a validation error.
func NewScrapeRequest(in FormInput) (ScrapeRequest, error) {
	url := strings.TrimSpace(in.URL)
	if url == "" {
		return ScrapeRequest{}, NewValidationError(MsgInvalidURL)
	}
	return ScrapeRequest{
		URL:          url,
		Selector:     strings.TrimSpace(in.Selector),
		ElementTypes: ParseElementTypes(in.Elements),
	}, nil
}
