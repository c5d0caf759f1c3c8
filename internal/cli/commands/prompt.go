package commands

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/glamour"
	"github.com/urfave/cli/v2"

	"github.com/kutbudev/promptvault/internal/models"
)

// NewPromptCommand creates all subcommands for the 'prompt' command group.
func NewPromptCommand() *cli.Command {
	return &cli.Command{
		Name:    "prompt",
		Aliases: []string{"p"},
		Usage:   "Manage the prompt library",
		Subcommands: []*cli.Command{
			promptListCmd(),
			promptCreateCmd(),
			promptShowCmd(),
			promptUpdateCmd(),
			promptDeleteCmd(),
			promptSearchCmd(),
			promptCopyCmd(),
			promptFavoriteCmd(),
			promptWhereCmd(),
		},
	}
}

func promptFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "content", Aliases: []string{"c"}, Usage: "Prompt text"},
		&cli.PathFlag{Name: "file", Aliases: []string{"f"}, Usage: "Read the prompt text from a file (- for stdin)"},
		&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Short description"},
		&cli.StringFlag{Name: "tags", Aliases: []string{"t"}, Usage: "Comma-separated tags"},
		&cli.StringFlag{Name: "category", Usage: "Free-text category label"},
		&cli.StringFlag{Name: "language", Aliases: []string{"l"}, Usage: "Language of the prompt"},
	}
}

// contentFlag returns the prompt text from --content or --file
func contentFlag(c *cli.Context) (*string, error) {
	if c.IsSet("content") && c.IsSet("file") {
		return nil, fmt.Errorf("please provide the content using either --content or --file, not both")
	}
	if c.IsSet("content") {
		return stringPtr(c.String("content")), nil
	}
	path := c.Path("file")
	if path == "" {
		return nil, nil
	}
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}
	return stringPtr(string(data)), nil
}

// promptListCmd lists prompts.
func promptListCmd() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List prompts",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum number of prompts", Value: 50},
			&cli.IntFlag{Name: "offset", Usage: "Skip this many prompts"},
			&cli.StringFlag{Name: "sort", Aliases: []string{"s"}, Usage: "updated_at, created_at or title"},
			&cli.StringFlag{Name: "order", Usage: "asc or desc"},
		},
		Action: func(c *cli.Context) error {
			rt, err := openRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			data, err := rt.call(c, "listing prompts", "prompt:list", models.ListPromptsParams{
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
				Sort:   c.String("sort"),
				Order:  c.String("order"),
			})
			if err != nil {
				return err
			}
			prompts := data.([]models.Prompt)
			if len(prompts) == 0 {
				fmt.Fprintln(out(c), "No prompts found. Use 'promptvault prompt create' to add one.")
				return nil
			}
			printPromptTable(out(c), prompts)
			return nil
		},
	}
}

func printPromptTable(w io.Writer, prompts []models.Prompt) {
	titleWidth := 40
	if width := terminalWidth(); width > 120 {
		titleWidth = 60
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\t★\tTITLE\tCATEGORY\tTAGS\tUPDATED")
	fmt.Fprintln(tw, "--\t-\t-----\t--------\t----\t-------")
	for _, p := range prompts {
		star := ""
		if p.IsFavorite {
			star = "★"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(p.UUID),
			star,
			truncateString(p.Title, titleWidth),
			orDash(p.Category),
			truncateString(orDash(p.Tags), 30),
			p.UpdatedAt.Local().Format(timeFormat))
	}
	tw.Flush()
}

// promptCreateCmd creates a new prompt.
func promptCreateCmd() *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "Create a new prompt",
		ArgsUsage: "[title]",
		Flags: append(promptFlags(),
			&cli.BoolFlag{Name: "favorite", Usage: "Mark as favorite"},
		),
		Action: func(c *cli.Context) error {
			title, err := requireArg(c, "prompt title")
			if err != nil {
				return err
			}
			content, err := contentFlag(c)
			if err != nil {
				return err
			}
			if content == nil {
				return fmt.Errorf("prompt content is required (--content or --file)")
			}

			rt, err := openRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			favorite := c.Bool("favorite")
			data, err := rt.call(c, "creating prompt", "prompt:create", models.CreatePromptPayload{
				Title:       title,
				Content:     *content,
				Description: optionalFlag(c, "description"),
				Tags:        optionalFlag(c, "tags"),
				Category:    optionalFlag(c, "category"),
				Language:    optionalFlag(c, "language"),
				IsFavorite:  &favorite,
			})
			if err != nil {
				return err
			}
			p := data.(*models.Prompt)
			fmt.Fprintf(out(c), "✅ Prompt '%s' created successfully!\n", p.Title)
			fmt.Fprintf(out(c), "ID: %s\n", p.UUID)
			return nil
		},
	}
}

// promptShowCmd shows one prompt, rendering Markdown on a terminal.
func promptShowCmd() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a prompt",
		ArgsUsage: "[prompt-id]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "raw", Usage: "Print the content without Markdown rendering"},
		},
		Action: func(c *cli.Context) error {
			arg, err := requireArg(c, "prompt ID")
			if err != nil {
				return err
			}
			rt, err := openRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			id, err := resolver{rt.store}.prompt(c.Context, arg)
			if err != nil {
				return report(c, "getting prompt", err)
			}
			data, err := rt.call(c, "getting prompt", "prompt:get", map[string]string{"uuid": id})
			if err != nil {
				return err
			}
			p := data.(*models.Prompt)

			w := out(c)
			fmt.Fprintf(w, "Prompt Details for '%s':\n", p.Title)
			fmt.Fprintf(w, "----------------------------------\n")
			fmt.Fprintf(w, "ID:          %s\n", p.UUID)
			fmt.Fprintf(w, "Description: %s\n", orDash(p.Description))
			fmt.Fprintf(w, "Category:    %s\n", orDash(p.Category))
			fmt.Fprintf(w, "Tags:        %s\n", orDash(p.Tags))
			fmt.Fprintf(w, "Language:    %s\n", orDash(p.Language))
			fmt.Fprintf(w, "Favorite:    %t\n", p.IsFavorite)
			fmt.Fprintf(w, "Created At:  %s\n", p.CreatedAt.Local().Format(timeFormat))
			fmt.Fprintf(w, "Updated At:  %s\n", p.UpdatedAt.Local().Format(timeFormat))
			fmt.Fprintln(w)

			if c.Bool("raw") || !isTerminal() {
				fmt.Fprintln(w, p.Content)
				return nil
			}
			rendered, err := renderMarkdown(p.Content)
			if err != nil {
				fmt.Fprintln(w, p.Content)
				return nil
			}
			fmt.Fprint(w, rendered)
			return nil
		},
	}
}

func renderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(min(terminalWidth(), 120)-4),
	)
	if err != nil {
		return "", err
	}
	return r.Render(content)
}

// promptUpdateCmd updates a prompt.
func promptUpdateCmd() *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Update a prompt's properties",
		ArgsUsage: "[prompt-id]",
		Flags: append(promptFlags(),
			&cli.StringFlag{Name: "title", Usage: "New title"},
		),
		Action: func(c *cli.Context) error {
			arg, err := requireArg(c, "prompt ID")
			if err != nil {
				return err
			}
			content, err := contentFlag(c)
			if err != nil {
				return err
			}
			payload := models.UpdatePromptPayload{
				Title:       optionalFlag(c, "title"),
				Content:     content,
				Description: optionalFlag(c, "description"),
				Tags:        optionalFlag(c, "tags"),
				Category:    optionalFlag(c, "category"),
				Language:    optionalFlag(c, "language"),
			}
			if payload.IsEmpty() {
				fmt.Fprintln(out(c), "No update fields provided.")
				return nil
			}

			rt, err := openRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			id, err := resolver{rt.store}.prompt(c.Context, arg)
			if err != nil {
				return report(c, "updating prompt", err)
			}
			data, err := rt.call(c, "updating prompt", "prompt:update", map[string]any{"uuid": id, "payload": payload})
			if err != nil {
				return err
			}
			p := data.(*models.Prompt)
			fmt.Fprintf(out(c), "✅ Prompt '%s' (ID: %s) updated successfully.\n", p.Title, shortID(p.UUID))
			return nil
		},
	}
}

// promptDeleteCmd deletes a prompt.
func promptDeleteCmd() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Delete a prompt",
		ArgsUsage: "[prompt-id]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Do not ask for confirmation"},
		},
		Action: func(c *cli.Context) error {
			arg, err := requireArg(c, "prompt ID")
			if err != nil {
				return err
			}
			rt, err := openRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			id, err := resolver{rt.store}.prompt(c.Context, arg)
			if err != nil {
				return report(c, "deleting prompt", err)
			}
			if ok, err := confirmAction(c, fmt.Sprintf("Delete prompt %s?", shortID(id))); !ok {
				return err
			}
			if _, err := rt.call(c, "deleting prompt", "prompt:delete", map[string]string{"uuid": id}); err != nil {
				return err
			}
			fmt.Fprintf(out(c), "🗑️ Prompt %s deleted successfully.\n", shortID(id))
			return nil
		},
	}
}

// promptSearchCmd searches prompts.
func promptSearchCmd() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Aliases:   []string{"find"},
		Usage:     "Search prompts by text, category or tag",
		ArgsUsage: "[query]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Usage: "Exact category label"},
			&cli.StringFlag{Name: "tag", Aliases: []string{"t"}, Usage: "Tag contained in the prompt's tags"},
			&cli.BoolFlag{Name: "fts", Usage: "Use the full-text index (embedded database only)"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum number of prompts", Value: 50},
		},
		Action: func(c *cli.Context) error {
			params := models.SearchPromptsParams{
				Query:    strings.Join(c.Args().Slice(), " "),
				Category: c.String("category"),
				Tag:      c.String("tag"),
				Limit:    c.Int("limit"),
			}
			if c.Bool("fts") {
				params.Mode = models.SearchFullText
			}

			rt, err := openRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			data, err := rt.call(c, "searching prompts", "prompt:search", params)
			if err != nil {
				return err
			}
			prompts := data.([]models.Prompt)
			if len(prompts) == 0 {
				fmt.Fprintln(out(c), "No matching prompts.")
				return nil
			}
			printPromptTable(out(c), prompts)
			return nil
		},
	}
}

// promptCopyCmd copies a prompt's content to the clipboard.
func promptCopyCmd() *cli.Command {
	return &cli.Command{
		Name:      "copy",
		Aliases:   []string{"cp"},
		Usage:     "Copy a prompt's content to the clipboard",
		ArgsUsage: "[prompt-id]",
		Action: func(c *cli.Context) error {
			arg, err := requireArg(c, "prompt ID")
			if err != nil {
				return err
			}
			rt, err := openRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			id, err := resolver{rt.store}.prompt(c.Context, arg)
			if err != nil {
				return report(c, "getting prompt", err)
			}
			data, err := rt.call(c, "getting prompt", "prompt:get", map[string]string{"uuid": id})
			if err != nil {
				return err
			}
			p := data.(*models.Prompt)
			if err := clipboard.WriteAll(p.Content); err != nil {
				return report(c, "copying to clipboard", err)
			}
			fmt.Fprintf(out(c), "📋 Copied '%s' to the clipboard.\n", p.Title)
			return nil
		},
	}
}

// promptFavoriteCmd toggles the favorite flag.
func promptFavoriteCmd() *cli.Command {
	return &cli.Command{
		Name:      "favorite",
		Aliases:   []string{"fav"},
		Usage:     "Toggle a prompt's favorite flag",
		ArgsUsage: "[prompt-id]",
		Action: func(c *cli.Context) error {
			arg, err := requireArg(c, "prompt ID")
			if err != nil {
				return err
			}
			rt, err := openRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			id, err := resolver{rt.store}.prompt(c.Context, arg)
			if err != nil {
				return report(c, "updating prompt", err)
			}
			data, err := rt.call(c, "getting prompt", "prompt:get", map[string]string{"uuid": id})
			if err != nil {
				return err
			}
			favorite := !data.(*models.Prompt).IsFavorite
			data, err = rt.call(c, "updating prompt", "prompt:update", map[string]any{
				"uuid":    id,
				"payload": models.UpdatePromptPayload{IsFavorite: &favorite},
			})
			if err != nil {
				return err
			}
			p := data.(*models.Prompt)
			if p.IsFavorite {
				fmt.Fprintf(out(c), "★ '%s' is now a favorite.\n", p.Title)
			} else {
				fmt.Fprintf(out(c), "☆ '%s' is no longer a favorite.\n", p.Title)
			}
			return nil
		},
	}
}

// promptWhereCmd prints where records are stored.
func promptWhereCmd() *cli.Command {
	return &cli.Command{
		Name:  "where",
		Usage: "Print the database location",
		Action: func(c *cli.Context) error {
			rt, err := openRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			data, err := rt.call(c, "locating database", "prompt:reveal-db", nil)
			if err != nil {
				return err
			}
			fmt.Fprintln(out(c), data)
			return nil
		},
	}
}
