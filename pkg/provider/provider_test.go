package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	zferrors "github.com/dkrolls/zoneforge/pkg/errors"
)

func TestRemoteSubmit(t *testing.T) {
	var got submitPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, submitPath, r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(SubmitReceipt{ID: "job-1", Status: StatusPending})
	}))
	defer srv.Close()

	p, err := NewRemote("testsvc", srv.URL, "secret", WithModel("designer-v2"))
	require.NoError(t, err)
	receipt, err := p.Submit(context.Background(), &GenerationRequest{
		Prompt: "a poster",
		Width:  1050,
		Height: 600,
		Seed:   42,
	})
	require.NoError(t, err)

	assert.Equal(t, "job-1", receipt.ID)
	assert.Equal(t, srv.URL+submitPath+"/job-1", receipt.PollURL,
		"poll URL should be derived when the service omits it")
	assert.Equal(t, "a poster", got.Prompt)
	assert.Equal(t, "designer-v2", got.Model, "provider default model applies")
	assert.Equal(t, int64(42), got.Seed)
}

func TestRemoteSubmitRequiresPrompt(t *testing.T) {
	p, err := NewRemote("testsvc", "http://unused", "")
	require.NoError(t, err)
	_, err = p.Submit(context.Background(), &GenerationRequest{})
	require.Error(t, err)
	assert.True(t, zferrors.Is(err, zferrors.ErrCodeInvalidInput))
}

func TestNewRemoteRejectsBadURL(t *testing.T) {
	for _, url := range []string{"", "ftp://host", "api.example.com"} {
		_, err := NewRemote("testsvc", url, "")
		require.Error(t, err, "url %q", url)
		assert.True(t, zferrors.Is(err, zferrors.ErrCodeInvalidInput))
	}
}

func TestRemoteStatusClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"server error", http.StatusInternalServerError, true},
		{"bad gateway", http.StatusBadGateway, true},
		{"rate limited", http.StatusTooManyRequests, true},
		{"bad request", http.StatusBadRequest, false},
		{"not found", http.StatusNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			p, err := NewRemote("testsvc", srv.URL, "")
			require.NoError(t, err)
			_, err = p.Submit(context.Background(), &GenerationRequest{Prompt: "x"})
			require.Error(t, err)
			assert.Equal(t, tt.retryable, zferrors.IsRetryable(err))
		})
	}
}

func TestRemotePoll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/generations/job-9", r.URL.Path)
		json.NewEncoder(w).Encode(PollResult{Status: StatusSucceeded, Output: "https://cdn/img.png"})
	}))
	defer srv.Close()

	p, err := NewRemote("testsvc", srv.URL, "")
	require.NoError(t, err)
	res, err := p.Poll(context.Background(), srv.URL+"/v1/generations/job-9")
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, res.Status)
	assert.Equal(t, "https://cdn/img.png", res.Output)
	assert.True(t, res.Status.Terminal())
}

func TestRemoteCancel(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p, err := NewRemote("testsvc", srv.URL, "")
	require.NoError(t, err)
	require.NoError(t, p.Cancel(context.Background(), "job-3"))
	assert.Equal(t, submitPath+"/job-3/cancel", path)
}

func TestMockScripts(t *testing.T) {
	m := NewMock()
	m.PollScript = []PollResult{
		{Status: StatusPending},
		{Status: StatusProcessing},
		{Status: StatusSucceeded, Output: "out"},
	}

	receipt, err := m.Submit(context.Background(), &GenerationRequest{Prompt: "x"})
	require.NoError(t, err)
	require.NotEmpty(t, receipt.PollURL)

	var last *PollResult
	for range 3 {
		last, err = m.Poll(context.Background(), receipt.PollURL)
		require.NoError(t, err)
	}
	assert.Equal(t, StatusSucceeded, last.Status)
	assert.Equal(t, 3, m.PollCount())

	// Script exhausted: the last entry repeats.
	again, err := m.Poll(context.Background(), receipt.PollURL)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, again.Status)

	require.NoError(t, m.Cancel(context.Background(), receipt.ID))
	assert.Equal(t, []string{receipt.ID}, m.Cancelled())
	assert.Len(t, m.Requests(), 1)
}
