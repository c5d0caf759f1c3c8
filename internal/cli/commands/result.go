package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/kutbudev/promptvault/internal/models"
)

// NewResultCommand creates all subcommands for the 'result' command group.
func NewResultCommand() *cli.Command {
	return &cli.Command{
		Name:    "result",
		Aliases: []string{"r"},
		Usage:   "Keep outputs produced by running a management prompt",
		Subcommands: []*cli.Command{
			resultListCmd(),
			resultAddCmd(),
			resultShowCmd(),
			resultUpdateCmd(),
			resultDeleteCmd(),
		},
	}
}

// resultListCmd lists the saved results of a management prompt, newest first.
func resultListCmd() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Aliases:   []string{"ls"},
		Usage:     "List the results saved for a management prompt",
		ArgsUsage: "[mprompt-id]",
		Action: func(c *cli.Context) error {
			arg, err := requireArg(c, "management prompt ID")
			if err != nil {
				return err
			}
			rt, err := openRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			mpID, err := resolver{rt.store}.managementPrompt(c.Context, arg)
			if err != nil {
				return report(c, "listing results", err)
			}
			data, err := rt.call(c, "listing results", "prompt-result:list", map[string]string{"prompt_uuid": mpID})
			if err != nil {
				return err
			}
			results := data.([]models.PromptResult)
			if len(results) == 0 {
				fmt.Fprintln(out(c), "No results saved for this management prompt.")
				return nil
			}

			w := tabwriter.NewWriter(out(c), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCREATED\tCONTENT")
			fmt.Fprintln(w, "--\t-------\t-------")
			for _, r := range results {
				fmt.Fprintf(w, "%s\t%s\t%s\n",
					shortID(r.UUID),
					r.CreatedAt.Local().Format(timeFormat),
					truncateString(r.Content, 60))
			}
			w.Flush()
			return nil
		},
	}
}

// resultAddCmd saves a result for a management prompt.
func resultAddCmd() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Save a result for a management prompt",
		ArgsUsage: "[mprompt-id]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "content", Aliases: []string{"c"}, Usage: "Result text"},
			&cli.PathFlag{Name: "file", Aliases: []string{"f"}, Usage: "Read the result from a file (- for stdin)"},
		},
		Action: func(c *cli.Context) error {
			arg, err := requireArg(c, "management prompt ID")
			if err != nil {
				return err
			}
			content, err := contentFlag(c)
			if err != nil {
				return err
			}
			if content == nil {
				return fmt.Errorf("result content is required (--content or --file)")
			}
			rt, err := openRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			mpID, err := resolver{rt.store}.managementPrompt(c.Context, arg)
			if err != nil {
				return report(c, "saving result", err)
			}
			data, err := rt.call(c, "saving result", "prompt-result:create", models.CreatePromptResultPayload{
				PromptUUID: mpID,
				Content:    *content,
			})
			if err != nil {
				return err
			}
			r := data.(*models.PromptResult)
			fmt.Fprintf(out(c), "✅ Result saved successfully!\n")
			fmt.Fprintf(out(c), "ID: %s\n", r.UUID)
			return nil
		},
	}
}

// resultShowCmd prints one result in full.
func resultShowCmd() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a saved result",
		ArgsUsage: "[result-id]",
		Action: func(c *cli.Context) error {
			arg, err := requireArg(c, "result ID")
			if err != nil {
				return err
			}
			rt, err := openRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			id, err := resolver{rt.store}.result(c.Context, arg)
			if err != nil {
				return report(c, "getting result", err)
			}
			data, err := rt.call(c, "getting result", "prompt-result:get", map[string]string{"uuid": id})
			if err != nil {
				return err
			}
			r := data.(*models.PromptResult)
			fmt.Fprintf(out(c), "Result %s (management prompt %s, %s):\n\n", shortID(r.UUID), shortID(r.PromptUUID),
				r.CreatedAt.Local().Format(timeFormat))
			fmt.Fprintln(out(c), r.Content)
			return nil
		},
	}
}

// resultUpdateCmd replaces a result's content.
func resultUpdateCmd() *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Replace a saved result's content",
		ArgsUsage: "[result-id]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "content", Aliases: []string{"c"}, Usage: "New result text"},
			&cli.PathFlag{Name: "file", Aliases: []string{"f"}, Usage: "Read the new result from a file (- for stdin)"},
		},
		Action: func(c *cli.Context) error {
			arg, err := requireArg(c, "result ID")
			if err != nil {
				return err
			}
			content, err := contentFlag(c)
			if err != nil {
				return err
			}
			if content == nil {
				fmt.Fprintln(out(c), "No update fields provided.")
				return nil
			}
			rt, err := openRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			id, err := resolver{rt.store}.result(c.Context, arg)
			if err != nil {
				return report(c, "updating result", err)
			}
			payload := models.UpdatePromptResultPayload{Content: content}
			if _, err := rt.call(c, "updating result", "prompt-result:update", map[string]any{"uuid": id, "payload": payload}); err != nil {
				return err
			}
			fmt.Fprintf(out(c), "✅ Result %s updated successfully.\n", shortID(id))
			return nil
		},
	}
}

// resultDeleteCmd deletes a result.
func resultDeleteCmd() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Delete a saved result",
		ArgsUsage: "[result-id]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Do not ask for confirmation"},
		},
		Action: func(c *cli.Context) error {
			arg, err := requireArg(c, "result ID")
			if err != nil {
				return err
			}
			rt, err := openRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			id, err := resolver{rt.store}.result(c.Context, arg)
			if err != nil {
				return report(c, "deleting result", err)
			}
			if ok, err := confirmAction(c, fmt.Sprintf("Delete result %s?", shortID(id))); !ok {
				return err
			}
			if _, err := rt.call(c, "deleting result", "prompt-result:delete", map[string]string{"uuid": id}); err != nil {
				return err
			}
			fmt.Fprintf(out(c), "🗑️ Result %s deleted successfully.\n", shortID(id))
			return nil
		},
	}
}
