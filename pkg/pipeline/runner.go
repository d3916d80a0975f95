package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dkrolls/zoneforge/pkg/cache"
	"github.com/dkrolls/zoneforge/pkg/compose"
	zferrors "github.com/dkrolls/zoneforge/pkg/errors"
	"github.com/dkrolls/zoneforge/pkg/layout"
	"github.com/dkrolls/zoneforge/pkg/mask"
	"github.com/dkrolls/zoneforge/pkg/observability"
	"github.com/dkrolls/zoneforge/pkg/orchestrator"
	"github.com/dkrolls/zoneforge/pkg/prompt"
	"github.com/dkrolls/zoneforge/pkg/provider"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete collect → template → generate → composite
// pipeline with caching. Generation results are never cached.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	machine := NewMachine(nil)
	machine.Start()

	result := &Result{
		Artifacts: make(map[string][]byte),
	}

	// Stage 1: Collect. In a one-shot execution the inputs arrive up front;
	// a server wiring can instead park the machine and Supply them later.
	machine.Supply(InputTemplate)
	machine.Supply(InputUserData)
	r.recordSession(&opts, machine, StageCollect, "inputs collected")
	if err := machine.Complete(StageCollect); err != nil {
		return nil, err
	}

	// Stage 2: Template (reactive zone layout)
	layoutStart := time.Now()
	observability.Pipeline().OnStageStart(ctx, StageTemplate, opts.Template.ID)
	zones, zonesHit, err := r.ComputeZonesWithCacheInfo(ctx, opts)
	result.Stats.LayoutTime = time.Since(layoutStart)
	observability.Pipeline().OnStageComplete(ctx, StageTemplate, opts.Template.ID, result.Stats.LayoutTime, err)
	if err != nil {
		machine.Fail(StageTemplate)
		return nil, fmt.Errorf("template: %w", err)
	}
	result.Zones = zones
	result.ZonesHash = r.zonesHash(opts.Template.ID, zones)
	result.Stats.ZoneCount = len(zones)
	result.CacheInfo.ZonesHit = zonesHit
	machine.Supply(InputZones)
	r.recordSession(&opts, machine, StageTemplate, "zones computed")
	if err := machine.Complete(StageTemplate); err != nil {
		return nil, err
	}

	r.Logger.Info("computed zones",
		"zones", len(zones),
		"cached", zonesHit,
		"duration", result.Stats.LayoutTime)

	// Stage 3: Generate (mask, prompts, provider)
	maskStart := time.Now()
	m, maskHit, err := r.BuildMaskWithCacheInfo(ctx, opts, zones, result.ZonesHash)
	result.Stats.MaskTime = time.Since(maskStart)
	if err != nil {
		machine.Fail(StageGenerate)
		return nil, fmt.Errorf("mask: %w", err)
	}
	result.Mask = m
	result.Stats.ReservedCount = len(m.Zones)
	result.CacheInfo.MaskHit = maskHit

	prompts, err := prompt.Compose(opts.Template, opts.Style, opts.UserData, zones)
	if err != nil {
		machine.Fail(StageGenerate)
		return nil, fmt.Errorf("prompt: %w", err)
	}
	result.Prompts = prompts

	if opts.SkipGenerate {
		// Park the run: mask and prompts exist, generation waits for a
		// provider. Accumulated data survives the stop.
		machine.Stop()
		r.recordSession(&opts, machine, StageGenerate, "generation skipped")
		return result, nil
	}

	genStart := time.Now()
	observability.Pipeline().OnStageStart(ctx, StageGenerate, opts.Template.ID)
	background, err := r.generate(ctx, opts, m, prompts, result)
	result.Stats.GenerateTime = time.Since(genStart)
	observability.Pipeline().OnStageComplete(ctx, StageGenerate, opts.Template.ID, result.Stats.GenerateTime, err)
	if err != nil {
		machine.Fail(StageGenerate)
		r.recordSession(&opts, machine, StageGenerate, "generation failed")
		return nil, fmt.Errorf("generate: %w", err)
	}
	machine.Supply(InputGenerated)
	r.recordSession(&opts, machine, StageGenerate, "image generated")
	if err := machine.Complete(StageGenerate); err != nil {
		return nil, err
	}

	r.Logger.Info("generated image",
		"provider", opts.Provider.Name(),
		"duration", result.Stats.GenerateTime)

	// Stage 4: Composite
	composeStart := time.Now()
	observability.Pipeline().OnStageStart(ctx, StageComposite, opts.Template.ID)
	artifacts, artifactHit, err := r.CompositeWithCacheInfo(ctx, opts, zones, background, result)
	result.Stats.ComposeTime = time.Since(composeStart)
	observability.Pipeline().OnStageComplete(ctx, StageComposite, opts.Template.ID, result.Stats.ComposeTime, err)
	if err != nil {
		machine.Fail(StageComposite)
		return nil, fmt.Errorf("composite: %w", err)
	}
	result.Artifacts = artifacts
	result.CacheInfo.ArtifactHit = artifactHit
	r.recordSession(&opts, machine, StageComposite, "artifacts rendered")
	if err := machine.Complete(StageComposite); err != nil {
		return nil, err
	}
	observability.Pipeline().OnRunComplete(ctx, opts.Template.ID,
		result.Stats.LayoutTime+result.Stats.MaskTime+result.Stats.GenerateTime+result.Stats.ComposeTime, nil)

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.ComposeTime)

	return result, nil
}

// ComputeZonesWithCacheInfo computes the zone layout with caching and
// returns cache hit info.
func (r *Runner) ComputeZonesWithCacheInfo(ctx context.Context, opts Options) ([]layout.ComputedZone, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLayout(); err != nil {
		return nil, false, err
	}

	userDataJSON, _ := json.Marshal(opts.UserData)
	cacheKey := r.Keyer.ZonesKey(opts.Template.ID, cache.ZonesKeyOpts{
		UserDataHash: cache.Hash(userDataJSON),
	})

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			if z, err := layout.UnmarshalZones(data); err == nil {
				observability.Cache().OnCacheHit(ctx, "zones")
				return z.Zones, true, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "zones")
	}

	engine := layout.NewEngine(opts.Metrics, opts.Logger)
	zones, err := engine.Compute(opts.Template, opts.UserData)
	if err != nil {
		return nil, false, err
	}

	if !opts.Refresh {
		wrapped := layout.Zones{
			TemplateID: opts.Template.ID,
			Width:      opts.Template.Dimensions.Width,
			Height:     opts.Template.Dimensions.Height,
			Zones:      zones,
		}
		if data, err := layout.MarshalZones(wrapped); err == nil {
			_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLZones)
			observability.Cache().OnCacheSet(ctx, "zones", len(data))
		}
	}

	return zones, false, nil
}

// ComputeZones computes the zone layout with caching.
func (r *Runner) ComputeZones(ctx context.Context, opts Options) ([]layout.ComputedZone, error) {
	zones, _, err := r.ComputeZonesWithCacheInfo(ctx, opts)
	return zones, err
}

// BuildMaskWithCacheInfo rasterizes the guidance mask with bitmap caching.
// The vector form is cheap and always derived fresh from the zones.
func (r *Runner) BuildMaskWithCacheInfo(ctx context.Context, opts Options, zones []layout.ComputedZone, zonesHash string) (*mask.Mask, bool, error) {
	synth := mask.NewSynthesizer(nil)
	m, err := synth.Generate(opts.Template, zones)
	if err != nil {
		return nil, false, err
	}

	cacheKey := r.Keyer.MaskKey(zonesHash, cache.MaskKeyOpts{
		Width:  opts.Template.Dimensions.Width,
		Height: opts.Template.Dimensions.Height,
	})

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			if bitmap, err := png.Decode(bytes.NewReader(data)); err == nil {
				observability.Cache().OnCacheHit(ctx, "mask")
				m.Bitmap = bitmap
				return m, true, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "mask")
	}

	if !opts.Refresh {
		if data, err := m.PNG(); err == nil {
			_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLMask)
			observability.Cache().OnCacheSet(ctx, "mask", len(data))
		}
	}
	return m, false, nil
}

// generate runs the orchestrator and resolves the output reference into the
// background image for composition. Provider calls are never cached.
func (r *Runner) generate(ctx context.Context, opts Options, m *mask.Mask, prompts *prompt.Composed, result *Result) (image.Image, error) {
	maskPNG, err := m.PNG()
	if err != nil {
		return nil, err
	}

	req := &provider.GenerationRequest{
		Prompt:           prompts.Prompt,
		NegativePrompt:   prompts.NegativePrompt,
		CompositorPrompt: prompts.Compositor,
		Width:            opts.Template.Dimensions.Width,
		Height:           opts.Template.Dimensions.Height,
		Seed:             opts.Seed,
		Model:            opts.Model,
		MaskPNG:          maskPNG,
		MaskPaths:        m.VectorPaths,
	}

	orch := opts.Orchestration
	orch.Provider = opts.Provider
	orch.Logger = opts.Logger
	o, err := orchestrator.New(orch)
	if err != nil {
		return nil, err
	}

	var output string
	if opts.BatchCount > 1 {
		batch, err := o.GenerateBatch(ctx, req, opts.BatchCount)
		if err != nil {
			return nil, err
		}
		result.Batch = batch
		for i := range batch.Items {
			if batch.Items[i].Success {
				result.Generation = &batch.Items[i]
				output = batch.Items[i].Output
				break
			}
		}
		if output == "" {
			return nil, zferrors.New(zferrors.ErrCodeGenerationFailed,
				"all %d batch items failed", len(batch.Items))
		}
	} else {
		gen, err := o.Generate(ctx, req)
		if err != nil {
			return nil, err
		}
		result.Generation = gen
		if !gen.Success {
			return nil, zferrors.New(zferrors.Code(gen.ErrorCode), "%s", gen.Error)
		}
		output = gen.Output
	}

	return r.loadBackground(opts, output), nil
}

// loadBackground turns the provider's output reference into pixels. A
// reference the loader cannot resolve degrades to a solid background.
func (r *Runner) loadBackground(opts Options, ref string) image.Image {
	if ref == "" || opts.LoadOutput == nil {
		return nil
	}
	img, err := opts.LoadOutput(ref)
	if err != nil {
		r.Logger.Warn("could not load generated output, composing without background",
			"ref", ref, "err", err)
		return nil
	}
	return img
}

// CompositeWithCacheInfo renders the final artifacts with caching.
func (r *Runner) CompositeWithCacheInfo(ctx context.Context, opts Options, zones []layout.ComputedZone, background image.Image, result *Result) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForComposite(); err != nil {
		return nil, false, err
	}

	compositionHash := r.compositionHash(result, opts)

	// Try cache for every requested format first.
	artifacts := make(map[string][]byte, len(opts.Formats))
	if !opts.Refresh {
		allHit := true
		for _, format := range opts.Formats {
			key := r.artifactKey(compositionHash, format)
			data, hit, err := r.Cache.Get(ctx, key)
			if err != nil || !hit {
				allHit = false
				break
			}
			artifacts[format] = data
		}
		if allHit && len(artifacts) == len(opts.Formats) {
			observability.Cache().OnCacheHit(ctx, "artifact")
			return artifacts, true, nil
		}
		observability.Cache().OnCacheMiss(ctx, "artifact")
	}

	renderer := compose.NewRenderer(compose.Options{
		Metrics:   opts.Metrics,
		Logger:    opts.Logger,
		LoadImage: opts.LoadOutput,
	})
	out, err := renderer.Render(compose.Input{
		Template:   opts.Template,
		Zones:      zones,
		Background: background,
		Style:      opts.Style,
		UserData:   opts.UserData,
	})
	if err != nil {
		return nil, false, err
	}

	artifacts = make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		data, err := encodeArtifact(out, format)
		if err != nil {
			return nil, false, err
		}
		artifacts[format] = data
		if !opts.Refresh {
			key := r.artifactKey(compositionHash, format)
			_ = r.Cache.Set(ctx, key, data, cache.TTLArtifact)
			observability.Cache().OnCacheSet(ctx, "artifact", len(data))
		}
	}
	return artifacts, false, nil
}

func encodeArtifact(out *compose.Output, format string) ([]byte, error) {
	switch format {
	case FormatPNG:
		return compose.EncodePNG(out.Standard)
	case FormatJPEG:
		return compose.EncodeJPEG(out.Standard, DefaultJPEGQuality)
	case FormatPrint:
		return compose.EncodePNG(out.Print)
	case FormatDoc:
		return compose.ExportDocument(out)
	default:
		return nil, zferrors.New(zferrors.ErrCodeInvalidFormat, "unknown format %q", format)
	}
}

func (r *Runner) artifactKey(compositionHash, format string) string {
	scale := 1
	if format == FormatPrint || format == FormatDoc {
		scale = 2
	}
	return r.Keyer.ArtifactKey(compositionHash, cache.ArtifactKeyOpts{Format: format, Scale: scale})
}

// compositionHash fingerprints everything that shapes the composed raster.
func (r *Runner) compositionHash(result *Result, opts Options) string {
	var output string
	if result.Generation != nil {
		output = result.Generation.Output
	}
	styleJSON, _ := json.Marshal(opts.Style)
	return cache.Hash([]byte(result.ZonesHash + "|" + output + "|" + string(styleJSON)))
}

// zonesHash fingerprints a computed zone list for downstream cache keys.
func (r *Runner) zonesHash(templateID string, zones []layout.ComputedZone) string {
	data, err := layout.MarshalZones(layout.Zones{TemplateID: templateID, Zones: zones})
	if err != nil {
		return ""
	}
	return cache.Hash(data)
}

// recordSession mirrors machine state into the run session, if one is set.
func (r *Runner) recordSession(opts *Options, machine *Machine, stage, note string) {
	if opts.Session == nil {
		return
	}
	snap := machine.Snapshot()
	opts.Session.Status = snap.Status
	opts.Session.CurrentStage = snap.CurrentStage
	for k, v := range snap.Stages {
		opts.Session.Stages[k] = v
	}
	opts.Session.Record(stage, note)
}

// applyLogger propagates the runner's logger into options that lack one.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
