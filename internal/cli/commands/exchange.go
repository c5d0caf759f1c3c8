package commands

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/kutbudev/promptvault/internal/models"
)

// NewExportCommand writes every prompt to a JSON file.
func NewExportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export all prompts to a JSON file",
		ArgsUsage: "[path]",
		Action: func(c *cli.Context) error {
			rt, err := openRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			path := c.Args().First()
			if _, err := rt.call(c, "exporting prompts", "prompt:export", map[string]string{"path": path}); err != nil {
				return ignoreCancel(err)
			}
			if path == "" {
				fmt.Fprintln(out(c), "✅ Prompts exported successfully!")
			} else {
				fmt.Fprintf(out(c), "✅ Prompts exported to %s\n", path)
			}
			return nil
		},
	}
}

// NewImportCommand merges prompts from a JSON file.
func NewImportCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import prompts from a JSON file (newer records win)",
		ArgsUsage: "[path]",
		Action: func(c *cli.Context) error {
			rt, err := openRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			data, err := rt.call(c, "importing prompts", "prompt:import", map[string]string{"path": c.Args().First()})
			if err != nil {
				return ignoreCancel(err)
			}
			stats := data.(models.ImportStats)
			fmt.Fprintln(out(c), "✅ Import finished.")
			fmt.Fprintf(out(c), "  Imported: %d\n", stats.Imported)
			fmt.Fprintf(out(c), "  Updated:  %d\n", stats.Updated)
			fmt.Fprintf(out(c), "  Skipped:  %d\n", stats.Skipped)
			return nil
		},
	}
}
