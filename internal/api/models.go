package api

import (
	"encoding/json"

	"github.com/p-blackswan/playcraft/internal/intelligence"
	"github.com/p-blackswan/playcraft/internal/project"
	"github.com/p-blackswan/playcraft/internal/tracker"
	"github.com/p-blackswan/playcraft/internal/weights"
)

// SaveFilesRequest is the body of PUT /projects/:id/files.
type SaveFilesRequest struct {
	Files  []project.FileInput `json:"files"`
	Source tracker.Source      `json:"source,omitempty"`
}

// TrackChangesRequest is the body of POST /projects/:id/changes.
type TrackChangesRequest struct {
	Changes []tracker.Update `json:"changes"`
}

// PendingResponse reports queued tracker changes. Scheduled is true while a
// debounced run is waiting to fire.
type PendingResponse struct {
	Pending   int  `json:"pending"`
	Scheduled bool `json:"scheduled"`
}

// SuggestRequest is the body of POST /projects/:id/suggestions.
type SuggestRequest struct {
	Prompt string `json:"prompt"`
	Limit  int    `json:"limit,omitempty"`
}

// SuggestResponse carries ranked files and the context they were ranked in.
type SuggestResponse struct {
	Suggestions []intelligence.Suggestion `json:"suggestions"`
	Changes     intelligence.Changes      `json:"changes"`
	Weights     weights.Adaptive          `json:"weights"`
}

// FeedbackRequest reports which suggested files were actually edited.
type FeedbackRequest struct {
	Suggestions []intelligence.Suggestion `json:"suggestions"`
	EditedPaths []string                  `json:"edited_paths"`
}

// PublishRequest is the body of POST /projects/:id/publish.
type PublishRequest struct {
	Label string `json:"label"`
	Notes string `json:"notes"`
}

// ValidateAssetRequest describes an asset before upload.
type ValidateAssetRequest struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// ActionRequest is a store action in wire form.
type ActionRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
