package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dkrolls/zoneforge/pkg/pipeline"
	"github.com/dkrolls/zoneforge/pkg/session"
)

// runCommand creates the run command: the quiet end-to-end pipeline for
// scripting, with a persisted run session.
func (c *CLI) runCommand() *cobra.Command {
	var (
		dataPath     string
		stylePath    string
		providerURL  string
		model        string
		seed         int64
		batch        int
		formats      string
		outDir       string
		noCache      bool
		refresh      bool
		skipGenerate bool
	)

	cmd := &cobra.Command{
		Use:   "run [template.toml]",
		Short: "Run the pipeline end to end without interactive output",
		Long: `Run the pipeline end to end without interactive output.

Unlike 'generate', run prints only log lines and a final summary, making it
suitable for scripts and CI. Each run is recorded as a session under
~/.config/zoneforge/sessions/ so its stage progress can be inspected later.

With --skip-generate the pipeline stops after producing the mask and prompts;
the session is parked and keeps its accumulated data.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRun(cmd.Context(), runParams{
				input:        args[0],
				dataPath:     dataPath,
				stylePath:    stylePath,
				providerURL:  providerURL,
				model:        model,
				seed:         seed,
				batch:        batch,
				formats:      parseFormats(formats),
				outDir:       outDir,
				noCache:      noCache,
				refresh:      refresh,
				skipGenerate: skipGenerate,
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
	cmd.Flags().BoolVar(&skipGenerate, "skip-generate", false, "stop after masks and prompts")

	return cmd
}

type runParams struct {
	input        string
	dataPath     string
	stylePath    string
	providerURL  string
	model        string
	seed         int64
	batch        int
	formats      []string
	outDir       string
	noCache      bool
	refresh      bool
	skipGenerate bool
}

// runRun executes the pipeline and persists the run session.
func (c *CLI) runRun(ctx context.Context, p runParams) error {
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
		Template:     tpl,
		UserData:     userData,
		Style:        style,
		Seed:         p.seed,
		Model:        p.model,
		BatchCount:   p.batch,
		SkipGenerate: p.skipGenerate,
		Formats:      p.formats,
		Refresh:      p.refresh,
		Provider:     prov,
		Logger:       c.Logger,
	}

	sess := session.New(tpl.ID, session.DefaultTTL)
	opts.Session = sess

	track := newProgress(c.Logger)
	result, err := runner.Execute(ctx, opts)
	if storeErr := storeSession(ctx, sess); storeErr != nil {
		c.Logger.Warn("could not persist session", "id", sess.ID, "err", storeErr)
	}
	if err != nil {
		return err
	}
	track.done(fmt.Sprintf("Pipeline finished (%d zones, session %s)", result.Stats.ZoneCount, sess.ID))

	if p.skipGenerate {
		printSuccess("Run parked after mask and prompts")
		printDetail("session %s", sess.ID)
		return nil
	}

	outDir := p.outDir
	if outDir == "" {
		outDir = filepath.Dir(p.input)
	}
	written, err := writeArtifacts(outDir, filepath.Base(outputBase(p.input)), result.Artifacts)
	if err != nil {
		return err
	}

	printSuccess("Run complete")
	for _, path := range written {
		printFile(path)
	}
	printDetail("session %s", sess.ID)

	return nil
}

// storeSession writes the run session to the file store.
func storeSession(ctx context.Context, sess *session.Session) error {
	store, err := session.NewFileStore("")
	if err != nil {
		return err
	}
	return store.Set(ctx, sess)
}
