// Package server exposes the design pipeline as an HTTP API.
//
// The API is deliberately small:
//
//	POST /v1/designs        run the pipeline, return zones, prompts and artifacts
//	GET  /v1/sessions/{id}  inspect a run session
//	GET  /healthz           liveness probe
//
// Design requests are one-shot: the handler runs the pipeline synchronously
// and returns the full result. Long-running provider generations keep the
// connection open; callers that cannot wait should use skip_generate and
// poll the session instead.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	zferrors "github.com/dkrolls/zoneforge/pkg/errors"
	"github.com/dkrolls/zoneforge/pkg/layout"
	"github.com/dkrolls/zoneforge/pkg/pipeline"
	"github.com/dkrolls/zoneforge/pkg/prompt"
	"github.com/dkrolls/zoneforge/pkg/provider"
	"github.com/dkrolls/zoneforge/pkg/session"
	"github.com/dkrolls/zoneforge/pkg/template"
)

// defaultRequestTimeout bounds one design request end to end.
const defaultRequestTimeout = 5 * time.Minute

// Server handles pipeline HTTP requests.
type Server struct {
	runner   *pipeline.Runner
	provider provider.Provider
	sessions session.Store
	logger   *log.Logger
}

// New creates a server. A nil session store falls back to an in-memory one;
// a nil provider means requests must set skip_generate.
func New(runner *pipeline.Runner, prov provider.Provider, sessions session.Store, logger *log.Logger) *Server {
	if sessions == nil {
		sessions = session.NewMemoryStore()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Server{runner: runner, provider: prov, sessions: sessions, logger: logger}
}

// Router builds the chi router with middleware and routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(defaultRequestTimeout))
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/designs", s.handleCreateDesign)
		r.Get("/sessions/{id}", s.handleGetSession)
	})

	return r
}

// logRequests logs one line per request with status and duration.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Millisecond))
	})
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// designRequest is the wire form of a pipeline run.
type designRequest struct {
	Template     *template.Template    `json:"template"`
	UserData     template.UserData     `json:"user_data,omitempty"`
	Style        *template.StyleConfig `json:"style,omitempty"`
	Seed         int64                 `json:"seed,omitempty"`
	Model        string                `json:"model,omitempty"`
	BatchCount   int                   `json:"batch_count,omitempty"`
	SkipGenerate bool                  `json:"skip_generate,omitempty"`
	Formats      []string              `json:"formats,omitempty"`
	Refresh      bool                  `json:"refresh,omitempty"`
}

// designResponse is the wire form of a pipeline result. Artifact bytes are
// base64 in JSON by encoding/json's []byte convention.
type designResponse struct {
	SessionID string                `json:"session_id"`
	Zones     layout.Zones          `json:"zones"`
	MaskPaths []string              `json:"mask_paths,omitempty"`
	MaskPNG   []byte                `json:"mask_png,omitempty"`
	Prompts   *prompt.Composed      `json:"prompts,omitempty"`
	Artifacts map[string][]byte     `json:"artifacts,omitempty"`
	CacheInfo pipeline.CacheInfo    `json:"cache_info"`
	Stats     designStats           `json:"stats"`
	Items     []designGenerated     `json:"generated,omitempty"`
}

type designStats struct {
	ZoneCount     int     `json:"zone_count"`
	ReservedCount int     `json:"reserved_count"`
	TotalSeconds  float64 `json:"total_seconds"`
}

type designGenerated struct {
	Success  bool   `json:"success"`
	Output   string `json:"output,omitempty"`
	Error    string `json:"error,omitempty"`
	Attempts int    `json:"attempts"`
	Seed     int64  `json:"seed,omitempty"`
}

func (s *Server) handleCreateDesign(w http.ResponseWriter, r *http.Request) {
	var req designRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, zferrors.Wrap(zferrors.ErrCodeInvalidInput, err, "decode request body"))
		return
	}
	if req.Template == nil {
		writeError(w, zferrors.New(zferrors.ErrCodeInvalidTemplate, "template is required"))
		return
	}
	if !req.SkipGenerate && s.provider == nil {
		writeError(w, zferrors.New(zferrors.ErrCodeUnsupported,
			"no provider configured, set skip_generate"))
		return
	}

	sess := session.New(req.Template.ID, session.DefaultTTL)
	opts := pipeline.Options{
		Template:     req.Template,
		UserData:     req.UserData,
		Style:        req.Style,
		Seed:         req.Seed,
		Model:        req.Model,
		BatchCount:   req.BatchCount,
		SkipGenerate: req.SkipGenerate,
		Formats:      req.Formats,
		Refresh:      req.Refresh,
		Provider:     s.provider,
		Session:      sess,
		Logger:       s.logger,
	}

	result, err := s.runner.Execute(r.Context(), opts)
	if storeErr := s.sessions.Set(r.Context(), sess); storeErr != nil {
		s.logger.Warn("could not store session", "id", sess.ID, "err", storeErr)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	resp := designResponse{
		SessionID: sess.ID,
		Zones: layout.Zones{
			TemplateID: req.Template.ID,
			Width:      req.Template.Dimensions.Width,
			Height:     req.Template.Dimensions.Height,
			Zones:      result.Zones,
		},
		Prompts:   result.Prompts,
		Artifacts: result.Artifacts,
		CacheInfo: result.CacheInfo,
		Stats: designStats{
			ZoneCount:     result.Stats.ZoneCount,
			ReservedCount: result.Stats.ReservedCount,
			TotalSeconds: (result.Stats.LayoutTime + result.Stats.MaskTime +
				result.Stats.GenerateTime + result.Stats.ComposeTime).Seconds(),
		},
	}
	if result.Mask != nil {
		resp.MaskPaths = result.Mask.VectorPaths
		if png, err := result.Mask.PNG(); err == nil {
			resp.MaskPNG = png
		}
	}
	if result.Generation != nil {
		resp.Items = append(resp.Items, designGenerated{
			Success:  result.Generation.Success,
			Output:   result.Generation.Output,
			Error:    result.Generation.Error,
			Attempts: result.Generation.Attempts,
			Seed:     result.Generation.Metadata.Seed,
		})
	}
	if result.Batch != nil {
		resp.Items = resp.Items[:0]
		for i := range result.Batch.Items {
			item := &result.Batch.Items[i]
			resp.Items = append(resp.Items, designGenerated{
				Success:  item.Success,
				Output:   item.Output,
				Error:    item.Error,
				Attempts: item.Attempts,
				Seed:     item.Metadata.Seed,
			})
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		writeError(w, zferrors.Wrap(zferrors.ErrCodeInternal, err, "load session"))
		return
	}
	if sess == nil {
		writeError(w, zferrors.New(zferrors.ErrCodeSessionNotFound, "session %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// =============================================================================
// Responses
// =============================================================================

// errorResponse is the wire form of a failure.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps structured error codes to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	code := zferrors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case zferrors.ErrCodeInvalidInput, zferrors.ErrCodeInvalidTemplate,
		zferrors.ErrCodeInvalidZone, zferrors.ErrCodeInvalidFormat,
		zferrors.ErrCodeInvalidStyle, zferrors.ErrCodeCyclicPush:
		status = http.StatusBadRequest
	case zferrors.ErrCodeNotFound, zferrors.ErrCodeFileNotFound, zferrors.ErrCodeSessionNotFound:
		status = http.StatusNotFound
	case zferrors.ErrCodeBusy, zferrors.ErrCodeRateLimited:
		status = http.StatusTooManyRequests
	case zferrors.ErrCodePollTimeout, zferrors.ErrCodeTimeout:
		status = http.StatusGatewayTimeout
	case zferrors.ErrCodeUnsupported:
		status = http.StatusNotImplemented
	}

	writeJSON(w, status, errorResponse{
		Code:    string(code),
		Message: zferrors.UserMessage(err),
	})
}
