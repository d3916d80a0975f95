package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	zferrors "github.com/dkrolls/zoneforge/pkg/errors"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	submitPath         = "/v1/generations"
)

// RemoteProvider talks to an HTTP generation service exposing a job API:
// POST /v1/generations to submit, GET on the returned poll URL for status,
// POST /v1/generations/{id}/cancel to abandon.
type RemoteProvider struct {
	name    string
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

// RemoteOption configures a RemoteProvider.
type RemoteOption func(*RemoteProvider)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(p *RemoteProvider) { p.http = c }
}

// WithModel sets the model identifier sent with each request.
func WithModel(model string) RemoteOption {
	return func(p *RemoteProvider) { p.model = model }
}

// NewRemote creates a provider for the service at baseURL.
// The URL must use an http or https scheme.
func NewRemote(name, baseURL, apiKey string, opts ...RemoteOption) (*RemoteProvider, error) {
	if err := zferrors.ValidateURL(baseURL); err != nil {
		return nil, zferrors.Wrap(zferrors.ErrCodeInvalidInput, err, "provider %s base URL", name)
	}
	p := &RemoteProvider{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Name returns the provider identifier.
func (p *RemoteProvider) Name() string { return p.name }

// submitPayload is the wire form of a generation request.
type submitPayload struct {
	Prompt           string   `json:"prompt"`
	NegativePrompt   string   `json:"negative_prompt,omitempty"`
	CompositorPrompt string   `json:"compositor_prompt,omitempty"`
	Width            int      `json:"width"`
	Height           int      `json:"height"`
	Seed             int64    `json:"seed,omitempty"`
	Model            string   `json:"model,omitempty"`
	MaskImage        string   `json:"mask_image,omitempty"`
	MaskPaths        []string `json:"mask_paths,omitempty"`
}

// Submit posts the request and returns the service's job receipt.
func (p *RemoteProvider) Submit(ctx context.Context, req *GenerationRequest) (*SubmitReceipt, error) {
	if req == nil || req.Prompt == "" {
		return nil, zferrors.New(zferrors.ErrCodeInvalidInput, "generation request needs a prompt")
	}

	payload := submitPayload{
		Prompt:           req.Prompt,
		NegativePrompt:   req.NegativePrompt,
		CompositorPrompt: req.CompositorPrompt,
		Width:            req.Width,
		Height:           req.Height,
		Seed:             req.Seed,
		Model:            req.Model,
		MaskPaths:        req.MaskPaths,
	}
	if payload.Model == "" {
		payload.Model = p.model
	}
	if len(req.MaskPNG) > 0 {
		payload.MaskImage = base64.StdEncoding.EncodeToString(req.MaskPNG)
	}

	var receipt SubmitReceipt
	if err := p.do(ctx, http.MethodPost, p.baseURL+submitPath, payload, &receipt); err != nil {
		return nil, err
	}
	if receipt.ID == "" {
		return nil, zferrors.New(zferrors.ErrCodeGenerationFailed,
			"%s returned a receipt without a job id", p.name)
	}
	if receipt.PollURL == "" {
		receipt.PollURL = fmt.Sprintf("%s%s/%s", p.baseURL, submitPath, receipt.ID)
	}
	return &receipt, nil
}

// Poll fetches the job status from the poll URL.
func (p *RemoteProvider) Poll(ctx context.Context, pollURL string) (*PollResult, error) {
	var result PollResult
	if err := p.do(ctx, http.MethodGet, pollURL, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Cancel asks the service to abandon the job.
func (p *RemoteProvider) Cancel(ctx context.Context, id string) error {
	url := fmt.Sprintf("%s%s/%s/cancel", p.baseURL, submitPath, id)
	return p.do(ctx, http.MethodPost, url, nil, nil)
}

// do performs one JSON round trip. Network failures and 5xx or 429 responses
// come back as retryable errors; other non-2xx statuses do not.
func (p *RemoteProvider) do(ctx context.Context, method, url string, body, v any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return zferrors.Wrap(zferrors.ErrCodeInternal, err, "encode request body")
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return zferrors.Wrap(zferrors.ErrCodeInvalidInput, err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return zferrors.Wrap(zferrors.ErrCodeCancelled, ctx.Err(), "request cancelled")
		}
		return zferrors.WrapRetryable(zferrors.ErrCodeNetwork, err, "%s %s", method, url)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp.StatusCode, p.name); err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return zferrors.Wrap(zferrors.ErrCodeNetwork, err, "decode %s response", p.name)
	}
	return nil
}

func checkStatus(code int, name string) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return zferrors.New(zferrors.ErrCodeNotFound, "%s: job not found", name)
	case code == http.StatusTooManyRequests:
		return zferrors.NewRetryable(zferrors.ErrCodeRateLimited, "%s: rate limited", name)
	case code >= 500:
		return zferrors.NewRetryable(zferrors.ErrCodeNetwork, "%s: status %d", name, code)
	default:
		return zferrors.New(zferrors.ErrCodeGenerationFailed, "%s: status %d", name, code)
	}
}
