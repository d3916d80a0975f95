package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dkrolls/zoneforge/pkg/pipeline"
)

// maskCommand creates the mask command for rasterizing guidance masks.
func (c *CLI) maskCommand() *cobra.Command {
	var (
		dataPath string
		output   string
		noCache  bool
	)

	cmd := &cobra.Command{
		Use:   "mask [template.toml]",
		Short: "Rasterize the generation guidance mask",
		Long: `Rasterize the generation guidance mask.

The mask command computes the zone layout and paints every reserved zone
(mask_value 0) black on a white canvas, inflated by the zone's mask padding.
The PNG tells the generation provider where it must not paint; the vector
paths for each reserved rectangle are logged for providers that accept path
input instead of bitmaps.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runMask(cmd.Context(), args[0], dataPath, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "user data JSON file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.mask.png)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// runMask computes the mask and writes the PNG.
func (c *CLI) runMask(ctx context.Context, input, dataPath, output string, noCache bool) error {
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
		Logger:   c.Logger,
	}

	spinner := newSpinnerWithContext(ctx, "Building guidance mask...")
	spinner.Start()

	zones, _, err := runner.ComputeZonesWithCacheInfo(ctx, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}

	m, cacheHit, err := runner.BuildMaskWithCacheInfo(ctx, opts, zones, "")
	if err != nil {
		spinner.StopWithError("Mask failed")
		return fmt.Errorf("build mask: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	data, err := m.PNG()
	if err != nil {
		return fmt.Errorf("encode mask: %w", err)
	}

	outputPath := output
	if outputPath == "" {
		outputPath = outputBase(input) + ".mask.png"
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Mask complete")
	printFile(outputPath)
	printZoneStats(len(zones), len(m.Zones), cacheHit)
	for _, path := range m.VectorPaths {
		printDetail("path %s", path)
	}
	printNewline()
	printNextStep("Generate", "zoneforge generate "+input+" -d "+dataPath)

	return nil
}
