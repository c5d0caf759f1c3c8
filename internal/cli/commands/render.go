package commands

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/urfave/cli/v2"

	"github.com/kutbudev/promptvault/internal/facade"
)

// NewRenderCommand fills a management prompt's template.
func NewRenderCommand() *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "Fill a management prompt with its group's variables",
		ArgsUsage: "[mprompt-id]",
		Flags: []cli.Flag{
			varFlag(),
			&cli.BoolFlag{Name: "copy", Usage: "Copy the rendered text to the clipboard"},
			&cli.BoolFlag{Name: "strict", Usage: "Fail when a placeholder has no value"},
		},
		Action: func(c *cli.Context) error {
			arg, err := requireArg(c, "management prompt ID")
			if err != nil {
				return err
			}
			vars, err := parseVars(c.StringSlice("var"))
			if err != nil {
				return err
			}
			rt, err := openRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			id, err := resolver{rt.store}.managementPrompt(c.Context, arg)
			if err != nil {
				return report(c, "rendering", err)
			}
			data, err := rt.call(c, "rendering", "management-prompt:render", map[string]any{"uuid": id, "variables": vars})
			if err != nil {
				return err
			}
			result := data.(*facade.RenderResult)

			if len(result.Missing) > 0 {
				msg := "no value for " + strings.Join(result.Missing, ", ")
				if c.Bool("strict") {
					return report(c, "rendering", fmt.Errorf("%s", msg))
				}
				fmt.Fprintf(c.App.ErrWriter, "⚠️  %s\n", msg)
			}

			if c.Bool("copy") {
				if err := clipboard.WriteAll(result.Content); err != nil {
					return report(c, "copying to clipboard", err)
				}
				fmt.Fprintf(out(c), "📋 Copied '%s' to the clipboard.\n", result.Name)
				return nil
			}
			fmt.Fprintln(out(c), result.Content)
			return nil
		},
	}
}
