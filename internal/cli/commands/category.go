package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/kutbudev/promptvault/internal/models"
)

// NewCategoryCommand creates all subcommands for the 'category' command group.
func NewCategoryCommand() *cli.Command {
	return &cli.Command{
		Name:    "category",
		Aliases: []string{"cat"},
		Usage:   "Manage categories of prompt groups",
		Subcommands: []*cli.Command{
			categoryListCmd(),
			categoryCreateCmd(),
			categoryUpdateCmd(),
			categoryDeleteCmd(),
		},
	}
}

// categoryListCmd lists all categories.
func categoryListCmd() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List all categories",
		Action: func(c *cli.Context) error {
			rt, err := openRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			data, err := rt.call(c, "listing categories", "category:list", nil)
			if err != nil {
				return err
			}
			categories := data.([]models.Category)
			if len(categories) == 0 {
				fmt.Fprintln(out(c), "No categories found. Use 'promptvault category create' to add one.")
				return nil
			}

			w := tabwriter.NewWriter(out(c), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
			fmt.Fprintln(w, "--\t----\t-----------")
			for _, cat := range categories {
				fmt.Fprintf(w, "%s\t%s\t%s\n",
					shortID(cat.UUID),
					cat.Name,
					truncateString(orDash(cat.Description), 50))
			}
			w.Flush()
			return nil
		},
	}
}

// categoryCreateCmd creates a new category.
func categoryCreateCmd() *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "Create a new category",
		ArgsUsage: "[name]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Category description"},
		},
		Action: func(c *cli.Context) error {
			name, err := requireArg(c, "category name")
			if err != nil {
				return err
			}
			rt, err := openRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			data, err := rt.call(c, "creating category", "category:create", models.CreateCategoryPayload{
				Name:        name,
				Description: optionalFlag(c, "description"),
			})
			if err != nil {
				return err
			}
			cat := data.(*models.Category)
			fmt.Fprintf(out(c), "✅ Category '%s' created successfully!\n", cat.Name)
			fmt.Fprintf(out(c), "ID: %s\n", cat.UUID)
			return nil
		},
	}
}

// categoryUpdateCmd renames or re-describes a category.
func categoryUpdateCmd() *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Update a category's properties",
		ArgsUsage: "[category-id]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "New name"},
			&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "New description"},
		},
		Action: func(c *cli.Context) error {
			arg, err := requireArg(c, "category ID")
			if err != nil {
				return err
			}
			payload := models.UpdateCategoryPayload{
				Name:        optionalFlag(c, "name"),
				Description: optionalFlag(c, "description"),
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

			id, err := resolver{rt.store}.category(c.Context, arg)
			if err != nil {
				return report(c, "updating category", err)
			}
			data, err := rt.call(c, "updating category", "category:update", map[string]any{"uuid": id, "payload": payload})
			if err != nil {
				return err
			}
			cat := data.(*models.Category)
			fmt.Fprintf(out(c), "✅ Category '%s' (ID: %s) updated successfully.\n", cat.Name, shortID(cat.UUID))
			return nil
		},
	}
}

// categoryDeleteCmd deletes a category along with its groups and their prompts.
func categoryDeleteCmd() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Delete a category with all of its groups",
		ArgsUsage: "[category-id]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Do not ask for confirmation"},
		},
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

			id, err := resolver{rt.store}.category(c.Context, arg)
			if err != nil {
				return report(c, "deleting category", err)
			}
			msg := fmt.Sprintf("Delete category %s and everything in it?", shortID(id))
			if ok, err := confirmAction(c, msg); !ok {
				return err
			}
			if _, err := rt.call(c, "deleting category", "category:delete", map[string]string{"uuid": id}); err != nil {
				return err
			}
			fmt.Fprintf(out(c), "🗑️ Category %s deleted successfully.\n", shortID(id))
			return nil
		},
	}
}
