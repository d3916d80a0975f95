package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Mock is a scripted in-memory provider for tests and offline runs.
//
// Submit consumes SubmitErrs in order (nil means success); Poll consumes
// PollScript in order, repeating the last entry once the script runs out.
// With an empty script every poll reports success immediately.
type Mock struct {
	mu sync.Mutex

	// SubmitErrs[i] is returned by the i-th Submit call.
	SubmitErrs []error
	// PollScript entries are returned by successive Poll calls.
	PollScript []PollResult

	submitCount int
	pollCount   int
	cancelled   []string
	requests    []GenerationRequest
}

// NewMock creates a mock provider with an empty script.
func NewMock() *Mock {
	return &Mock{}
}

// Name returns "mock".
func (m *Mock) Name() string { return "mock" }

// Submit records the request and replays the next scripted submit error.
func (m *Mock) Submit(ctx context.Context, req *GenerationRequest) (*SubmitReceipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.submitCount
	m.submitCount++
	if req != nil {
		m.requests = append(m.requests, *req)
	}
	if i < len(m.SubmitErrs) && m.SubmitErrs[i] != nil {
		return nil, m.SubmitErrs[i]
	}

	id := uuid.NewString()
	return &SubmitReceipt{
		ID:      id,
		Status:  StatusPending,
		PollURL: fmt.Sprintf("mock://jobs/%s", id),
	}, nil
}

// Poll replays the next scripted poll result.
func (m *Mock) Poll(ctx context.Context, pollURL string) (*PollResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.pollCount
	m.pollCount++
	if len(m.PollScript) == 0 {
		return &PollResult{Status: StatusSucceeded, Output: "mock://outputs/" + uuid.NewString()}, nil
	}
	if i >= len(m.PollScript) {
		i = len(m.PollScript) - 1
	}
	r := m.PollScript[i]
	return &r, nil
}

// Cancel records the cancelled job id.
func (m *Mock) Cancel(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled = append(m.cancelled, id)
	return nil
}

// SubmitCount reports how many Submit calls were made.
func (m *Mock) SubmitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submitCount
}

// PollCount reports how many Poll calls were made.
func (m *Mock) PollCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pollCount
}

// Cancelled returns the job ids passed to Cancel.
func (m *Mock) Cancelled() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.cancelled...)
}

// Requests returns a copy of every submitted request.
func (m *Mock) Requests() []GenerationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]GenerationRequest(nil), m.requests...)
}
