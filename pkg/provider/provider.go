// Package provider abstracts the image generation backend.
//
// The orchestrator never talks to a concrete service; it submits requests
// through the Provider interface and polls for completion. RemoteProvider
// speaks an HTTP job API, Mock replays scripted responses for tests and
// offline runs.
package provider

import (
	"context"
)

// =============================================================================
// Contract
// =============================================================================

// Status is a provider-side job status.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status ends the poll loop.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// GenerationRequest is one image generation job.
type GenerationRequest struct {
	Prompt           string `json:"prompt" bson:"prompt"`
	NegativePrompt   string `json:"negative_prompt,omitempty" bson:"negative_prompt,omitempty"`
	CompositorPrompt string `json:"compositor_prompt,omitempty" bson:"compositor_prompt,omitempty"`
	Width            int    `json:"width" bson:"width"`
	Height           int    `json:"height" bson:"height"`
	Seed             int64  `json:"seed,omitempty" bson:"seed,omitempty"`
	Model            string `json:"model,omitempty" bson:"model,omitempty"`

	// MaskPNG carries the guidance mask for providers that accept one.
	// MaskPaths is the vector fallback.
	MaskPNG   []byte   `json:"mask_png,omitempty" bson:"mask_png,omitempty"`
	MaskPaths []string `json:"mask_paths,omitempty" bson:"mask_paths,omitempty"`
}

// SubmitReceipt acknowledges an accepted job.
type SubmitReceipt struct {
	ID      string `json:"id" bson:"id"`
	Status  Status `json:"status" bson:"status"`
	PollURL string `json:"poll_url" bson:"poll_url"`
}

// PollResult is one poll round trip's answer.
type PollResult struct {
	Status Status `json:"status" bson:"status"`
	Output string `json:"output,omitempty" bson:"output,omitempty"`
	Error  string `json:"error,omitempty" bson:"error,omitempty"`
}

// Provider is the generation backend contract.
type Provider interface {
	// Name identifies the backend for result metadata and logs.
	Name() string

	// Submit starts a generation job.
	Submit(ctx context.Context, req *GenerationRequest) (*SubmitReceipt, error)

	// Poll fetches the current status of a submitted job.
	Poll(ctx context.Context, pollURL string) (*PollResult, error)

	// Cancel asks the backend to abandon a job. Best effort.
	Cancel(ctx context.Context, id string) error
}
