package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dkrolls/zoneforge/pkg/layout"
	"github.com/dkrolls/zoneforge/pkg/prompt"
	"github.com/dkrolls/zoneforge/pkg/template"
)

// promptCommand creates the prompt command for inspecting composed prompts.
func (c *CLI) promptCommand() *cobra.Command {
	var (
		dataPath  string
		stylePath string
	)

	cmd := &cobra.Command{
		Use:   "prompt [template.toml]",
		Short: "Compose the generation and compositor prompts",
		Long: `Compose the generation and compositor prompts.

The prompt command substitutes {{variable}} placeholders in the template's
prompt against the merged variable set (built-in defaults, then style, then
user data) and prints the positive, negative and compositor prompts the
generate command would send. Useful for tuning templates without burning
provider credits.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPrompt(cmd.Context(), args[0], dataPath, stylePath)
		},
	}

	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "user data JSON file")
	cmd.Flags().StringVarP(&stylePath, "style", "s", "", "style config file (TOML or JSON)")

	return cmd
}

// runPrompt composes and prints the prompts.
func (c *CLI) runPrompt(ctx context.Context, input, dataPath, stylePath string) error {
	tpl, userData, style, err := loadInputs(input, dataPath, stylePath)
	if err != nil {
		return err
	}

	engine := layout.NewEngine(nil, c.Logger)
	zones, err := engine.Compute(tpl, userData)
	if err != nil {
		return fmt.Errorf("compute layout: %w", err)
	}

	if style == nil {
		style = &template.StyleConfig{}
	}
	composed, err := prompt.Compose(tpl, style, userData, zones)
	if err != nil {
		return fmt.Errorf("compose prompt: %w", err)
	}

	printSection("Prompt")
	fmt.Println(composed.Prompt)
	if composed.NegativePrompt != "" {
		printSection("Negative")
		fmt.Println(composed.NegativePrompt)
	}
	if composed.Compositor != "" {
		printSection("Compositor")
		fmt.Println(composed.Compositor)
	}
	printNewline()

	return nil
}
