package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dkrolls/zoneforge/pkg/layout"
	"github.com/dkrolls/zoneforge/pkg/pipeline"
)

// layoutCommand creates the layout command for computing reactive zone bounds.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		dataPath string
		output   string
		noCache  bool
		refresh  bool
	)

	cmd := &cobra.Command{
		Use:   "layout [template.toml]",
		Short: "Compute reactive zone bounds from a template and user data",
		Long: `Compute reactive zone bounds from a template and user data.

The layout command loads a template (TOML or JSON), resizes its reactive text
zones to fit the supplied user data, and propagates push offsets to dependent
zones. The output is a zones.json file consumed by 'mask', 'compose' and
'generate'.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), args[0], dataPath, output, noCache, refresh)
		},
	}

	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "user data JSON file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.zones.json)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cache for this run")

	return cmd
}

// runLayout loads the inputs, computes the layout, and writes output.
func (c *CLI) runLayout(ctx context.Context, input, dataPath, output string, noCache, refresh bool) error {
	tpl, userData, _, err := loadInputs(input, dataPath, "")
	if err != nil {
		return err
	}

	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}

	opts := pipeline.Options{
		Template: tpl,
		UserData: userData,
		Refresh:  refresh,
		Logger:   c.Logger,
	}

	spinner := newSpinnerWithContext(ctx, "Computing zone layout...")
	spinner.Start()

	zones, cacheHit, err := runner.ComputeZonesWithCacheInfo(ctx, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	outputPath := output
	if outputPath == "" {
		outputPath = outputBase(input) + ".zones.json"
	}

	wrapped := layout.Zones{
		TemplateID: tpl.ID,
		Width:      tpl.Dimensions.Width,
		Height:     tpl.Dimensions.Height,
		Zones:      zones,
	}
	if err := layout.WriteZonesFile(wrapped, outputPath); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	reserved := 0
	for i := range zones {
		if zones[i].Reserved() {
			reserved++
		}
	}

	printSuccess("Layout complete")
	printFile(outputPath)
	printZoneStats(len(zones), reserved, cacheHit)
	printNewline()
	printNextStep("Mask", "zoneforge mask "+input+" -d "+dataPath)

	return nil
}
