// Package pipeline provides the core design-generation pipeline.
//
// This package implements the complete collect → template → generate →
// composite pipeline that can be used by CLI, API, and worker components.
// By centralizing this logic, we ensure consistent behavior across all
// entry points and avoid code duplication.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Collect: Gather user form data and style configuration
//  2. Template: Compute reactive zone layout from the template and user data
//  3. Generate: Build the guidance mask and prompts, run the provider
//  4. Composite: Render the final rasters over the generated background
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Template: tpl,
//	    UserData: userData,
//	    Provider: prov,
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	png := result.Artifacts["png"]
//
// Run individual stages:
//
//	zones, err := runner.ComputeZones(ctx, opts)
//	m, err := runner.BuildMask(ctx, tpl, zones, opts)
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dkrolls/zoneforge/pkg/compose"
	"github.com/dkrolls/zoneforge/pkg/layout"
	"github.com/dkrolls/zoneforge/pkg/mask"
	"github.com/dkrolls/zoneforge/pkg/orchestrator"
	"github.com/dkrolls/zoneforge/pkg/prompt"
	"github.com/dkrolls/zoneforge/pkg/provider"
	"github.com/dkrolls/zoneforge/pkg/session"
	"github.com/dkrolls/zoneforge/pkg/template"
	"github.com/dkrolls/zoneforge/pkg/textmetrics"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI, API, and Worker
// =============================================================================

const (
	// DefaultFormat is the default artifact format.
	DefaultFormat = FormatPNG

	// DefaultJPEGQuality is the encoder quality for JPEG artifacts.
	DefaultJPEGQuality = 90

	// DefaultBatchCount is the number of variants a batch run produces
	// when the caller does not say otherwise.
	DefaultBatchCount = 1
)

// Format constants for output formats.
const (
	FormatPNG   = "png"
	FormatJPEG  = "jpeg"
	FormatPrint = "print"
	FormatDoc   = "doc"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatPNG:   true,
	FormatJPEG:  true,
	FormatPrint: true,
	FormatDoc:   true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a pipeline run.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Template and collected inputs
	Template *template.Template    `json:"template,omitempty"`
	UserData template.UserData     `json:"user_data,omitempty"`
	Style    *template.StyleConfig `json:"style,omitempty"`

	// Generation options
	Seed       int64  `json:"seed,omitempty"`
	Model      string `json:"model,omitempty"`
	BatchCount int    `json:"batch_count,omitempty"`
	// SkipGenerate stops after the template stage; masks and prompts are
	// still produced so callers can inspect them without a provider.
	SkipGenerate bool `json:"skip_generate,omitempty"`

	// Composite options
	Formats []string `json:"formats,omitempty"`

	// Refresh bypasses the cache for every stage.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Provider   provider.Provider   `json:"-"`
	Metrics    textmetrics.Backend `json:"-"`
	Logger     *log.Logger         `json:"-"`
	Session    *session.Session    `json:"-"`
	LoadOutput compose.ImageLoader `json:"-"`
	// Orchestration, injectable for tests.
	Orchestration orchestrator.Options `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Zones is the computed zone list.
	Zones []layout.ComputedZone

	// ZonesHash is the content hash of the serialized zone list.
	ZonesHash string

	// Mask is the rasterized guidance mask.
	Mask *mask.Mask

	// Prompts holds the composed prompt strings.
	Prompts *prompt.Composed

	// Generation is the orchestrator outcome; nil when generation was
	// skipped.
	Generation *orchestrator.Result

	// Batch holds per-item outcomes for batch runs.
	Batch *orchestrator.BatchResult

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	ZoneCount     int
	ReservedCount int
	LayoutTime    time.Duration
	MaskTime      time.Duration
	GenerateTime  time.Duration
	ComposeTime   time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
// Generation has no entry: provider calls are never cached.
type CacheInfo struct {
	ZonesHit    bool // Whether the computed zones came from cache
	MaskHit     bool // Whether the mask bitmap came from cache
	ArtifactHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %q (must be one of: png, jpeg, print, doc)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the
// full pipeline. This method is idempotent - calling it multiple times has
// the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	if err := o.ValidateForGenerate(); err != nil {
		return err
	}
	o.SetCompositeDefaults()
	o.validated = true
	return nil
}

// ValidateForLayout checks required fields for the template stage.
func (o *Options) ValidateForLayout() error {
	if o.Template == nil {
		return fmt.Errorf("template is required")
	}
	if o.Metrics == nil {
		o.Metrics = textmetrics.Default()
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// ValidateForGenerate checks required fields for the generate stage.
func (o *Options) ValidateForGenerate() error {
	if !o.SkipGenerate && o.Provider == nil {
		return fmt.Errorf("provider is required unless skip_generate is set")
	}
	if o.BatchCount == 0 {
		o.BatchCount = DefaultBatchCount
	}
	if o.BatchCount < 0 {
		return fmt.Errorf("batch_count must be positive, got %d", o.BatchCount)
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// SetCompositeDefaults sets default values for the composite stage.
func (o *Options) SetCompositeDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{DefaultFormat}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForComposite validates and sets defaults for the composite stage.
func (o *Options) ValidateForComposite() error {
	o.SetCompositeDefaults()
	return ValidateFormats(o.Formats)
}
