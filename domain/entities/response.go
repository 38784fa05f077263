package entities

import "time"

// CapturedResponse holds the text block taken from the page after generation finished
type CapturedResponse struct {
	Prompt         string    `json:"prompt"`
	Text           string    `json:"text"`
	Markdown       string    `json:"markdown,omitempty"`
	SourceSelector string    `json:"source_selector"`
	CapturedAt     time.Time `json:"captured_at"`
}

// Body - returns the markdown rendering when available, the plain text otherwise
func (r CapturedResponse) Body() string {
	if r.Markdown != "" {
		return r.Markdown
	}
	return r.Text
}
