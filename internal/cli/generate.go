package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/dkrolls/zoneforge/pkg/orchestrator"
	"github.com/dkrolls/zoneforge/pkg/pipeline"
)

// generateCommand creates the generate command for running the full pipeline
// against a generation provider with live progress.
func (c *CLI) generateCommand() *cobra.Command {
	var (
		dataPath    string
		stylePath   string
		providerURL string
		model       string
		seed        int64
		batch       int
		formats     string
		outDir      string
		noCache     bool
		refresh     bool
		plain       bool
	)

	cmd := &cobra.Command{
		Use:   "generate [template.toml]",
		Short: "Generate a design through an AI image provider",
		Long: `Generate a design through an AI image provider.

The generate command runs the full pipeline: it computes the reactive zone
layout, builds the guidance mask and prompts, submits the generation request,
polls until the provider finishes, and composites the final artifacts.

With --provider mock (the default) a scripted in-memory provider is used, so
the pipeline can be exercised end to end without credentials. The API key for
remote providers is read from the ` + apiKeyEnv + ` environment variable.

With --batch N the provider is asked for N independent variants, each with
its own random seed; a single failed variant does not abort the batch.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGenerate(cmd.Context(), generateParams{
				input:       args[0],
				dataPath:    dataPath,
				stylePath:   stylePath,
				providerURL: providerURL,
				model:       model,
				seed:        seed,
				batch:       batch,
				formats:     parseFormats(formats),
				outDir:      outDir,
				noCache:     noCache,
				refresh:     refresh,
				plain:       plain,
			})
		},
	}

	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "user data JSON file")
	cmd.Flags().StringVarP(&stylePath, "style", "s", "", "style config file (TOML or JSON)")
	cmd.Flags().StringVar(&providerURL, "provider", "mock", "provider base URL, or 'mock'")
	cmd.Flags().StringVar(&model, "model", "", "model identifier sent to the provider")
	cmd.Flags().Int64Var(&seed, "seed", 0, "generation seed (0 = random)")
	cmd.Flags().IntVar(&batch, "batch", pipeline.DefaultBatchCount, "number of variants to generate")
	cmd.Flags().StringVarP(&formats, "formats", "f", "", "comma-separated output formats: png, jpeg, print, doc")
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "output directory (default: alongside the template)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cache for this run")
	cmd.Flags().BoolVar(&plain, "plain", false, "plain progress output instead of the live view")

	return cmd
}

type generateParams struct {
	input       string
	dataPath    string
	stylePath   string
	providerURL string
	model       string
	seed        int64
	batch       int
	formats     []string
	outDir      string
	noCache     bool
	refresh     bool
	plain       bool
}

// runGenerate executes the pipeline with live progress reporting.
func (c *CLI) runGenerate(ctx context.Context, p generateParams) error {
	tpl, userData, style, err := loadInputs(p.input, p.dataPath, p.stylePath)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(p.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}

	prov, err := newProvider(p.providerURL, p.model)
	if err != nil {
		return err
	}

	opts := pipeline.Options{
		Template:   tpl,
		UserData:   userData,
		Style:      style,
		Seed:       p.seed,
		Model:      p.model,
		BatchCount: p.batch,
		Formats:    p.formats,
		Refresh:    p.refresh,
		Provider:   prov,
		Logger:     c.Logger,
	}

	var result *pipeline.Result
	if p.plain {
		result, err = c.generatePlain(ctx, runner, opts)
	} else {
		result, err = c.generateLive(ctx, runner, opts, tpl.Name)
	}
	if err != nil {
		return err
	}

	outDir := p.outDir
	if outDir == "" {
		outDir = filepath.Dir(p.input)
	}
	written, err := writeArtifacts(outDir, filepath.Base(outputBase(p.input)), result.Artifacts)
	if err != nil {
		return err
	}

	printSuccess("Generation complete")
	for _, path := range written {
		printFile(path)
	}
	if gen := result.Generation; gen != nil {
		printDetail("provider %s · %d attempt(s) · %d poll(s)",
			gen.Metadata.Provider, gen.Attempts, gen.PollCount)
	}
	if b := result.Batch; b != nil {
		printDetail("batch: %d of %d variants succeeded", b.GeneratedCount, len(b.Items))
	}

	return nil
}

// generatePlain runs the pipeline behind a spinner that tracks progress.
func (c *CLI) generatePlain(ctx context.Context, runner *pipeline.Runner, opts pipeline.Options) (*pipeline.Result, error) {
	spinner := newSpinnerWithContext(ctx, "Generating...")
	opts.Orchestration = orchestrator.Options{
		OnProgress: func(s orchestrator.Snapshot) {
			spinner.SetMessage(fmt.Sprintf("Generating... %s %d%%", s.State, s.Progress))
		},
	}
	spinner.Start()

	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Generation failed")
		return nil, err
	}
	spinner.Stop()
	return result, nil
}

// generateLive runs the pipeline behind the bubbletea progress view.
func (c *CLI) generateLive(ctx context.Context, runner *pipeline.Runner, opts pipeline.Options, title string) (*pipeline.Result, error) {
	if title == "" {
		title = opts.Template.ID
	}
	program := tea.NewProgram(NewGenerateModel("Generating "+title), tea.WithContext(ctx))

	opts.Orchestration = orchestrator.Options{
		OnProgress: func(s orchestrator.Snapshot) {
			program.Send(snapshotMsg{Snapshot: s})
		},
	}

	go func() {
		result, err := runner.Execute(ctx, opts)
		program.Send(generateDoneMsg{Result: result, Err: err})
	}()

	final, err := program.Run()
	if err != nil {
		return nil, fmt.Errorf("progress view: %w", err)
	}
	m, ok := final.(GenerateModel)
	if !ok {
		return nil, fmt.Errorf("unexpected model type %T", final)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Quit && m.Result == nil {
		return nil, context.Canceled
	}
	return m.Result, nil
}

// writeArtifacts writes each artifact next to base with a format-derived name.
func writeArtifacts(dir, base string, artifacts map[string][]byte) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", dir, err)
	}

	var written []string
	for _, format := range []string{pipeline.FormatPNG, pipeline.FormatJPEG, pipeline.FormatPrint, pipeline.FormatDoc} {
		data, ok := artifacts[format]
		if !ok {
			continue
		}
		path := filepath.Join(dir, base+"."+artifactExt(format))
		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

// artifactExt maps a pipeline format to a filename extension.
func artifactExt(format string) string {
	switch format {
	case pipeline.FormatJPEG:
		return "jpg"
	case pipeline.FormatPrint:
		return "print.png"
	case pipeline.FormatDoc:
		return "doc.png"
	default:
		return "png"
	}
}
