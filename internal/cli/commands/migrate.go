package commands

import (
	"github.com/urfave/cli/v2"

	"github.com/kutbudev/promptvault/internal/migrate"
	"github.com/kutbudev/promptvault/internal/models"
)

// NewMigrateCommand copies the local database to the remote backend.
func NewMigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Copy every local record to the remote backend",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Do not ask for confirmation"},
		},
		Action: func(c *cli.Context) error {
			rt, err := openRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			ok, err := confirmAction(c, "Copy all local records to the remote backend? Existing remote records with the same IDs are overwritten.")
			if !ok {
				return err
			}
			data, err := rt.call(c, "migrating", "migrate:to-remote", nil)
			if err != nil {
				return err
			}
			migrate.WriteSummary(out(c), data.(models.MigrationResult))
			return nil
		},
	}
}
