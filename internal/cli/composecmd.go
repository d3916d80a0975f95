package cli

import (
	"context"
	"fmt"
	"image"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/dkrolls/zoneforge/pkg/compose"
	"github.com/dkrolls/zoneforge/pkg/pipeline"
)

// composeCommand creates the compose command for rendering artifacts without
// a generation step.
func (c *CLI) composeCommand() *cobra.Command {
	var (
		dataPath   string
		stylePath  string
		background string
		formats    string
		outDir     string
	)

	cmd := &cobra.Command{
		Use:   "compose [template.toml]",
		Short: "Composite artifacts from a template and an existing background",
		Long: `Composite artifacts from a template and an existing background.

The compose command skips generation entirely: it computes the zone layout,
loads a background image from disk (or falls back to a solid fill), draws
the text and image zones on top, and writes the requested artifact formats.
Useful for previewing templates and for re-compositing after editing user
data, without another provider round trip.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCompose(cmd.Context(), args[0], dataPath, stylePath, background, parseFormats(formats), outDir)
		},
	}

	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "user data JSON file")
	cmd.Flags().StringVarP(&stylePath, "style", "s", "", "style config file (TOML or JSON)")
	cmd.Flags().StringVarP(&background, "background", "b", "", "background image file")
	cmd.Flags().StringVarP(&formats, "formats", "f", "", "comma-separated output formats: png, jpeg, print, doc")
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "output directory (default: alongside the template)")

	return cmd
}

// runCompose renders artifacts from precomputed inputs.
func (c *CLI) runCompose(ctx context.Context, input, dataPath, stylePath, background string, formats []string, outDir string) error {
	tpl, userData, style, err := loadInputs(input, dataPath, stylePath)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(true)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}

	opts := pipeline.Options{
		Template: tpl,
		UserData: userData,
		Style:    style,
		Formats:  formats,
		Logger:   c.Logger,
	}

	zones, _, err := runner.ComputeZonesWithCacheInfo(ctx, opts)
	if err != nil {
		return fmt.Errorf("compute layout: %w", err)
	}

	bg := backgroundImage(background)

	renderer := compose.NewRenderer(compose.Options{Logger: c.Logger})
	out, err := renderer.Render(compose.Input{
		Template:   tpl,
		Zones:      zones,
		Background: bg,
		Style:      style,
		UserData:   userData,
	})
	if err != nil {
		return fmt.Errorf("composite: %w", err)
	}

	artifacts := make(map[string][]byte, len(formats))
	for _, format := range formats {
		if err := pipeline.ValidateFormat(format); err != nil {
			return err
		}
		data, err := encodeComposeArtifact(out, format)
		if err != nil {
			return fmt.Errorf("encode %s: %w", format, err)
		}
		artifacts[format] = data
	}

	if outDir == "" {
		outDir = filepath.Dir(input)
	}
	written, err := writeArtifacts(outDir, filepath.Base(outputBase(input)), artifacts)
	if err != nil {
		return err
	}

	printSuccess("Composition complete")
	for _, path := range written {
		printFile(path)
	}

	return nil
}

// backgroundImage loads the background file, degrading to nil (solid fill)
// when it is absent or unreadable.
func backgroundImage(path string) image.Image {
	if path == "" {
		return nil
	}
	img, err := imaging.Open(path)
	if err != nil {
		printWarning("could not load background %s, using a solid fill", path)
		return nil
	}
	return img
}

// encodeComposeArtifact encodes one output format.
func encodeComposeArtifact(out *compose.Output, format string) ([]byte, error) {
	switch format {
	case pipeline.FormatJPEG:
		return compose.EncodeJPEG(out.Standard, pipeline.DefaultJPEGQuality)
	case pipeline.FormatPrint:
		return compose.EncodePNG(out.Print)
	case pipeline.FormatDoc:
		return compose.ExportDocument(out)
	default:
		return compose.EncodePNG(out.Standard)
	}
}
