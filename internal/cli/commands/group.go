package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/kutbudev/promptvault/internal/models"
)

// NewGroupCommand creates all subcommands for the 'group' command group.
func NewGroupCommand() *cli.Command {
	return &cli.Command{
		Name:    "group",
		Aliases: []string{"g"},
		Usage:   "Manage groups of management prompts",
		Subcommands: []*cli.Command{
			groupListCmd(),
			groupCreateCmd(),
			groupUpdateCmd(),
			groupDeleteCmd(),
			groupReorderCmd(),
		},
	}
}

func varFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:    "var",
		Aliases: []string{"v"},
		Usage:   "Variable as key=value (repeatable)",
	}
}

// groupListCmd lists the groups of a category.
func groupListCmd() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Aliases:   []string{"ls"},
		Usage:     "List the groups of a category",
		ArgsUsage: "[category-id]",
		Action: func(c *cli.Context) error {
			arg, err := requireArg(c, "category ID")
			if err != nil {
				return err
			}
			rt, err := openRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			categoryID, err := resolver{rt.store}.category(c.Context, arg)
			if err != nil {
				return report(c, "listing groups", err)
			}
			data, err := rt.call(c, "listing groups", "group:list", map[string]string{"category_uuid": categoryID})
			if err != nil {
				return err
			}
			groups := data.([]models.Group)
			if len(groups) == 0 {
				fmt.Fprintln(out(c), "No groups in this category.")
				return nil
			}

			w := tabwriter.NewWriter(out(c), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ORDER\tID\tNAME\tVARIABLES")
			fmt.Fprintln(w, "-----\t--\t----\t---------")
			for _, g := range groups {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
					g.DisplayOrder,
					shortID(g.UUID),
					g.Name,
					truncateString(formatVars(g.GlobalVariables), 50))
			}
			w.Flush()
			return nil
		},
	}
}

// groupCreateCmd creates a group inside a category.
func groupCreateCmd() *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "Create a new group",
		ArgsUsage: "[name]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "Parent category ID", Required: true},
			&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Group description"},
			&cli.IntFlag{Name: "order", Usage: "Display order"},
			varFlag(),
		},
		Action: func(c *cli.Context) error {
			name, err := requireArg(c, "group name")
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

			categoryID, err := resolver{rt.store}.category(c.Context, c.String("category"))
			if err != nil {
				return report(c, "creating group", err)
			}
			payload := models.CreateGroupPayload{
				CategoryUUID:    categoryID,
				Name:            name,
				Description:     optionalFlag(c, "description"),
				GlobalVariables: vars,
			}
			if c.IsSet("order") {
				order := c.Int("order")
				payload.DisplayOrder = &order
			}
			data, err := rt.call(c, "creating group", "group:create", payload)
			if err != nil {
				return err
			}
			g := data.(*models.Group)
			fmt.Fprintf(out(c), "✅ Group '%s' created successfully!\n", g.Name)
			fmt.Fprintf(out(c), "ID: %s\n", g.UUID)
			return nil
		},
	}
}

// groupUpdateCmd updates a group. --var replaces the whole variable set.
func groupUpdateCmd() *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Update a group's properties",
		ArgsUsage: "[group-id]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "New name"},
			&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "New description"},
			&cli.IntFlag{Name: "order", Usage: "New display order"},
			varFlag(),
		},
		Action: func(c *cli.Context) error {
			arg, err := requireArg(c, "group ID")
			if err != nil {
				return err
			}
			payload := models.UpdateGroupPayload{
				Name:        optionalFlag(c, "name"),
				Description: optionalFlag(c, "description"),
			}
			if c.IsSet("order") {
				order := c.Int("order")
				payload.DisplayOrder = &order
			}
			if c.IsSet("var") {
				vars, err := parseVars(c.StringSlice("var"))
				if err != nil {
					return err
				}
				payload.GlobalVariables = vars
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

			id, err := resolver{rt.store}.group(c.Context, arg)
			if err != nil {
				return report(c, "updating group", err)
			}
			data, err := rt.call(c, "updating group", "group:update", map[string]any{"uuid": id, "payload": payload})
			if err != nil {
				return err
			}
			g := data.(*models.Group)
			fmt.Fprintf(out(c), "✅ Group '%s' (ID: %s) updated successfully.\n", g.Name, shortID(g.UUID))
			return nil
		},
	}
}

// groupDeleteCmd deletes a group and its management prompts.
func groupDeleteCmd() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Delete a group with its management prompts",
		ArgsUsage: "[group-id]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Do not ask for confirmation"},
		},
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

			id, err := resolver{rt.store}.group(c.Context, arg)
			if err != nil {
				return report(c, "deleting group", err)
			}
			if ok, err := confirmAction(c, fmt.Sprintf("Delete group %s?", shortID(id))); !ok {
				return err
			}
			if _, err := rt.call(c, "deleting group", "group:delete", map[string]string{"uuid": id}); err != nil {
				return err
			}
			fmt.Fprintf(out(c), "🗑️ Group %s deleted successfully.\n", shortID(id))
			return nil
		},
	}
}

// groupReorderCmd assigns display orders from the argument order.
func groupReorderCmd() *cli.Command {
	return &cli.Command{
		Name:      "reorder",
		Usage:     "Set the display order of groups",
		ArgsUsage: "[group-id...]",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("at least one group ID is required")
			}
			rt, err := openRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			items, err := reorderItems(c, resolver{rt.store}.group)
			if err != nil {
				return report(c, "reordering groups", err)
			}
			if _, err := rt.call(c, "reordering groups", "group:reorder", map[string]any{"items": items}); err != nil {
				return err
			}
			fmt.Fprintf(out(c), "✅ Reordered %d groups.\n", len(items))
			return nil
		},
	}
}
