package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/kutbudev/promptvault/internal/models"
)

// NewManagementPromptCommand creates all subcommands for the 'mprompt'
// command group.
func NewManagementPromptCommand() *cli.Command {
	return &cli.Command{
		Name:    "mprompt",
		Aliases: []string{"mp"},
		Usage:   "Manage templated prompts inside groups",
		Subcommands: []*cli.Command{
			mpromptListCmd(),
			mpromptCreateCmd(),
			mpromptShowCmd(),
			mpromptUpdateCmd(),
			mpromptDeleteCmd(),
			mpromptReorderCmd(),
		},
	}
}

// mpromptListCmd lists the management prompts of a group.
func mpromptListCmd() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Aliases:   []string{"ls"},
		Usage:     "List the management prompts of a group",
		ArgsUsage: "[group-id]",
		Action: func(c *cli.Context) error {
			arg, err := requireArg(c, "group ID")
			if err != nil {
				return err
			}
			rt, err := openRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			groupID, err := resolver{rt.store}.group(c.Context, arg)
			if err != nil {
				return report(c, "listing management prompts", err)
			}
			data, err := rt.call(c, "listing management prompts", "management-prompt:list", map[string]string{"group_uuid": groupID})
			if err != nil {
				return err
			}
			prompts := data.([]models.ManagementPrompt)
			if len(prompts) == 0 {
				fmt.Fprintln(out(c), "No management prompts in this group.")
				return nil
			}

			w := tabwriter.NewWriter(out(c), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ORDER\tID\tNAME\tCONTENT")
			fmt.Fprintln(w, "-----\t--\t----\t-------")
			for _, mp := range prompts {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
					mp.DisplayOrder,
					shortID(mp.UUID),
					mp.Name,
					truncateString(mp.Content, 50))
			}
			w.Flush()
			return nil
		},
	}
}

// mpromptCreateCmd creates a management prompt inside a group.
func mpromptCreateCmd() *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "Create a new management prompt",
		ArgsUsage: "[name]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "group", Aliases: []string{"g"}, Usage: "Parent group ID", Required: true},
			&cli.StringFlag{Name: "content", Aliases: []string{"c"}, Usage: "Template text with {{variables}}"},
			&cli.PathFlag{Name: "file", Aliases: []string{"f"}, Usage: "Read the template from a file (- for stdin)"},
			&cli.IntFlag{Name: "order", Usage: "Display order"},
		},
		Action: func(c *cli.Context) error {
			name, err := requireArg(c, "management prompt name")
			if err != nil {
				return err
			}
			content, err := contentFlag(c)
			if err != nil {
				return err
			}
			if content == nil {
				return fmt.Errorf("template content is required (--content or --file)")
			}
			rt, err := openRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			groupID, err := resolver{rt.store}.group(c.Context, c.String("group"))
			if err != nil {
				return report(c, "creating management prompt", err)
			}
			payload := models.CreateManagementPromptPayload{
				GroupUUID: groupID,
				Name:      name,
				Content:   *content,
			}
			if c.IsSet("order") {
				order := c.Int("order")
				payload.DisplayOrder = &order
			}
			data, err := rt.call(c, "creating management prompt", "management-prompt:create", payload)
			if err != nil {
				return err
			}
			mp := data.(*models.ManagementPrompt)
			fmt.Fprintf(out(c), "✅ Management prompt '%s' created successfully!\n", mp.Name)
			fmt.Fprintf(out(c), "ID: %s\n", mp.UUID)
			return nil
		},
	}
}

// mpromptShowCmd prints a management prompt's template.
func mpromptShowCmd() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a management prompt",
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

			id, err := resolver{rt.store}.managementPrompt(c.Context, arg)
			if err != nil {
				return report(c, "getting management prompt", err)
			}
			data, err := rt.call(c, "getting management prompt", "management-prompt:get", map[string]string{"uuid": id})
			if err != nil {
				return err
			}
			mp := data.(*models.ManagementPrompt)
			w := out(c)
			fmt.Fprintf(w, "Management Prompt '%s':\n", mp.Name)
			fmt.Fprintf(w, "----------------------------------\n")
			fmt.Fprintf(w, "ID:         %s\n", mp.UUID)
			fmt.Fprintf(w, "Group:      %s\n", mp.GroupUUID)
			fmt.Fprintf(w, "Order:      %d\n", mp.DisplayOrder)
			fmt.Fprintf(w, "Updated At: %s\n\n", mp.UpdatedAt.Local().Format(timeFormat))
			fmt.Fprintln(w, mp.Content)
			return nil
		},
	}
}

// mpromptUpdateCmd updates a management prompt, optionally moving it.
func mpromptUpdateCmd() *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Update a management prompt",
		ArgsUsage: "[mprompt-id]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "New name"},
			&cli.StringFlag{Name: "content", Aliases: []string{"c"}, Usage: "New template text"},
			&cli.PathFlag{Name: "file", Aliases: []string{"f"}, Usage: "Read the new template from a file (- for stdin)"},
			&cli.StringFlag{Name: "group", Aliases: []string{"g"}, Usage: "Move to this group"},
			&cli.IntFlag{Name: "order", Usage: "New display order"},
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
			payload := models.UpdateManagementPromptPayload{
				Name:    optionalFlag(c, "name"),
				Content: content,
			}
			if c.IsSet("order") {
				order := c.Int("order")
				payload.DisplayOrder = &order
			}
			if payload.IsEmpty() && !c.IsSet("group") {
				fmt.Fprintln(out(c), "No update fields provided.")
				return nil
			}

			rt, err := openRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			r := resolver{rt.store}
			id, err := r.managementPrompt(c.Context, arg)
			if err != nil {
				return report(c, "updating management prompt", err)
			}
			if c.IsSet("group") {
				groupID, err := r.group(c.Context, c.String("group"))
				if err != nil {
					return report(c, "updating management prompt", err)
				}
				payload.GroupUUID = &groupID
			}
			data, err := rt.call(c, "updating management prompt", "management-prompt:update", map[string]any{"uuid": id, "payload": payload})
			if err != nil {
				return err
			}
			mp := data.(*models.ManagementPrompt)
			fmt.Fprintf(out(c), "✅ Management prompt '%s' (ID: %s) updated successfully.\n", mp.Name, shortID(mp.UUID))
			return nil
		},
	}
}

// mpromptDeleteCmd deletes a management prompt.
func mpromptDeleteCmd() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Delete a management prompt",
		ArgsUsage: "[mprompt-id]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Do not ask for confirmation"},
		},
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

			id, err := resolver{rt.store}.managementPrompt(c.Context, arg)
			if err != nil {
				return report(c, "deleting management prompt", err)
			}
			if ok, err := confirmAction(c, fmt.Sprintf("Delete management prompt %s?", shortID(id))); !ok {
				return err
			}
			if _, err := rt.call(c, "deleting management prompt", "management-prompt:delete", map[string]string{"uuid": id}); err != nil {
				return err
			}
			fmt.Fprintf(out(c), "🗑️ Management prompt %s deleted successfully.\n", shortID(id))
			return nil
		},
	}
}

// mpromptReorderCmd assigns display orders from the argument order.
func mpromptReorderCmd() *cli.Command {
	return &cli.Command{
		Name:      "reorder",
		Usage:     "Set the display order of management prompts",
		ArgsUsage: "[mprompt-id...]",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("at least one management prompt ID is required")
			}
			rt, err := openRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			items, err := reorderItems(c, resolver{rt.store}.managementPrompt)
			if err != nil {
				return report(c, "reordering management prompts", err)
			}
			if _, err := rt.call(c, "reordering management prompts", "management-prompt:reorder", map[string]any{"items": items}); err != nil {
				return err
			}
			fmt.Fprintf(out(c), "✅ Reordered %d management prompts.\n", len(items))
			return nil
		},
	}
}

// reorderItems numbers the resolved arguments from zero
func reorderItems(c *cli.Context, resolve func(context.Context, string) (string, error)) ([]models.ReorderItem, error) {
	args := c.Args().Slice()
	items := make([]models.ReorderItem, len(args))
	for i, arg := range args {
		id, err := resolve(c.Context, arg)
		if err != nil {
			return nil, err
		}
		items[i] = models.ReorderItem{UUID: id, DisplayOrder: i}
	}
	return items, nil
}
