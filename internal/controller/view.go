package controller

import "github.com/raysh454/scrapeform/internal/model"

// State is the UI-visible lifecycle state.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateSuccess State = "success"
	StateError   State = "error"
)

// View is a snapshot of everything the page shows.
type View struct {
	State        State              `json:"state"`
	Loading      bool               `json:"loading"`
	Format       model.OutputFormat `json:"format"`
	Output       string             `json:"output"`
	IsError      bool               `json:"is_error"`
	HasResult    bool               `json:"has_result"`
	CopyLabel    string             `json:"copy_label"`
	SubmissionID string             `json:"submission_id,omitempty"`
	Input        model.FormInput    `json:"input"`
}
