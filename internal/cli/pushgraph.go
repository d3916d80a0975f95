package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/spf13/cobra"

	"github.com/dkrolls/zoneforge/pkg/template"
)

// pushgraphCommand creates the pushgraph debug command for visualizing the
// push relations between reactive zones.
func (c *CLI) pushgraphCommand() *cobra.Command {
	var (
		output  string
		dotOnly bool
	)

	cmd := &cobra.Command{
		Use:   "pushgraph [template.toml]",
		Short: "Visualize the push relations between zones",
		Long: `Visualize the push relations between zones.

The pushgraph command draws the template's zones as a directed graph: an edge
from A to B means growth of A pushes B. Reactive zones are highlighted with
their grow direction. Handy for debugging unexpected offsets and for spotting
the cycles the layout engine would reject.

Outputs SVG by default; use --dot to emit raw Graphviz DOT instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPushgraph(cmd.Context(), args[0], output, dotOnly)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.push.svg)")
	cmd.Flags().BoolVar(&dotOnly, "dot", false, "emit DOT source instead of rendering SVG")

	return cmd
}

// runPushgraph builds and renders the push graph.
func (c *CLI) runPushgraph(ctx context.Context, input, output string, dotOnly bool) error {
	tpl, err := template.Load(input)
	if err != nil {
		return err
	}

	dot := pushGraphDOT(tpl)

	if dotOnly {
		fmt.Print(dot)
		return nil
	}

	svg, err := renderSVG(ctx, dot)
	if err != nil {
		return fmt.Errorf("render push graph: %w", err)
	}

	outputPath := output
	if outputPath == "" {
		outputPath = outputBase(input) + ".push.svg"
	}
	if err := os.WriteFile(outputPath, svg, 0644); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Push graph rendered")
	printFile(outputPath)
	return nil
}

// pushGraphDOT converts a template's push relations to Graphviz DOT format.
// Reactive zones are filled and labeled with their grow direction; zones
// that neither push nor get pushed still appear so orphans are visible.
func pushGraphDOT(tpl *template.Template) string {
	var buf bytes.Buffer
	buf.WriteString("digraph pushes {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("\n")

	for i := range tpl.Zones {
		z := &tpl.Zones[i]
		attrs := []string{fmt.Sprintf("label=%q", zoneLabel(z))}
		if z.IsReactive() {
			attrs = append(attrs, "fillcolor=lightcyan")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", z.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for i := range tpl.Zones {
		z := &tpl.Zones[i]
		if z.Rules == nil {
			continue
		}
		for _, target := range z.Rules.PushesZones {
			fmt.Fprintf(&buf, "  %q -> %q;\n", z.ID, target)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func zoneLabel(z *template.Zone) string {
	label := z.ID + "\n" + z.Type
	if z.IsReactive() && z.Rules.GrowDirection != "" {
		label += " · grows " + z.Rules.GrowDirection
	}
	return label
}

// renderSVG renders a DOT graph to SVG using Graphviz.
func renderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
