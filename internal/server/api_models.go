package server

import (
	"github.com/raysh454/scrapeform/internal/controller"
	"github.com/raysh454/scrapeform/internal/model"
)

// ScrapeRequest is the JSON body of POST /api/scrape.
type ScrapeRequest struct {
	URL          string   `json:"url" example:"https://example.com"`
	Selector     string   `json:"selector" example:".article h2"`
	ElementTypes []string `json:"elementTypes" example:"[\"headings\",\"links\"]"`
	Format       string   `json:"format,omitempty" example:"csv"`
}

func (r ScrapeRequest) formInput() model.FormInput {
	return model.FormInput{
		URL:      r.URL,
		Selector: r.Selector,
		Elements: r.ElementTypes,
		Format:   r.Format,
	}
}

// ViewResponse is the page state. OutputEscaped is Output with markup
// escaped, ready for insertion into HTML.
type ViewResponse struct {
	controller.View
	OutputEscaped string `json:"output_escaped"`
}

// ResultResponse is the stored result rendered in one format.
type ResultResponse struct {
	Format   model.OutputFormat `json:"format" example:"csv"`
	Filename string             `json:"filename" example:"scraped-data.csv"`
	Output   string             `json:"output"`
}

// CopyResponse reports whether a copy took place and the resulting state.
type CopyResponse struct {
	Performed bool         `json:"performed"`
	View      ViewResponse `json:"view"`
}

// ViewMessage is the first message on /ws/events.
type ViewMessage struct {
	Type string          `json:"type" example:"view"`
	View controller.View `json:"view"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error" example:"a scrape is already in progress"`
}
