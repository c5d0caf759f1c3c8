package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/kutbudev/promptvault/internal/apperr"
	"github.com/kutbudev/promptvault/internal/backend"
	"github.com/kutbudev/promptvault/internal/config"
	"github.com/kutbudev/promptvault/internal/facade"
	"github.com/kutbudev/promptvault/internal/logging"
	"github.com/kutbudev/promptvault/internal/migrate"
	"github.com/kutbudev/promptvault/internal/models"
	"github.com/kutbudev/promptvault/internal/store"
)

// GlobalFlags are accepted before any command
func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "data-dir",
			Usage:   "directory holding the database, config.yaml and remote credentials",
			EnvVars: []string{"PROMPTVAULT_DATA_DIR"},
		},
		&cli.StringFlag{
			Name:    "backend",
			Aliases: []string{"b"},
			Usage:   "record store: sqlite, remote or postgres",
			EnvVars: []string{"PROMPTVAULT_BACKEND"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "debug, info, warn or error",
			EnvVars: []string{"PROMPTVAULT_LOG_LEVEL"},
		},
	}
}

// Commands returns every top-level command
func Commands() []*cli.Command {
	return []*cli.Command{
		// Prompt library
		NewPromptCommand(),
		NewResultCommand(),
		NewBrowseCommand(),

		// Templates
		NewCategoryCommand(),
		NewGroupCommand(),
		NewManagementPromptCommand(),
		NewRenderCommand(),
		NewBoardCommand(),

		// Data
		NewExportCommand(),
		NewImportCommand(),
		NewMigrateCommand(),

		// Meta
		NewServeCommand(),
		NewMcpCommand(),
		NewConfigCommand(),
	}
}

// loadSettings reads the configuration with global flags applied on top
func loadSettings(c *cli.Context) (*config.Settings, error) {
	return loadSettingsWith(c, nil)
}

func loadSettingsWith(c *cli.Context, defaults map[string]any) (*config.Settings, error) {
	return config.LoadWithDefaults(defaults, map[string]any{
		"data_dir":  c.String("data-dir"),
		"backend":   c.String("backend"),
		"log.level": c.String("log-level"),
	})
}

func newLogger(settings *config.Settings) (*zap.Logger, error) {
	return logging.New(logging.Options{Level: settings.Log.Level, Format: settings.Log.Format})
}

// runtime is what a command needs to reach the record store
type runtime struct {
	settings *config.Settings
	logger   *zap.Logger
	store    store.Store
	facade   *facade.Facade
}

// openRuntime loads settings and opens the configured store. The caller
// must Close the runtime.
func openRuntime(c *cli.Context) (*runtime, error) {
	return openRuntimeWith(c, nil)
}

// openRuntimeWith is openRuntime with some configuration defaults replaced
func openRuntimeWith(c *cli.Context, defaults map[string]any) (*runtime, error) {
	settings, err := loadSettingsWith(c, defaults)
	if err != nil {
		return nil, report(c, "loading config", err)
	}
	logger, err := newLogger(settings)
	if err != nil {
		return nil, err
	}

	s, err := backend.Open(c.Context, settings, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, report(c, "opening "+settings.Backend+" store", err)
	}

	rt := &runtime{settings: settings, logger: logger, store: s}
	rt.facade = facade.New(s,
		facade.WithLogger(logger.Named("facade")),
		facade.WithFilePicker(surveyPicker{}),
		facade.WithMigrator(facade.MigratorFunc(rt.migrateToRemote)),
		facade.WithConnectionTester(rt.testConnection),
	)
	return rt, nil
}

func (rt *runtime) Close() {
	if err := rt.store.Close(); err != nil {
		rt.logger.Warn("Failed to close store", zap.Error(err))
	}
	_ = rt.logger.Sync()
}

// migrateToRemote copies the embedded database into the migration target
func (rt *runtime) migrateToRemote(ctx context.Context) (models.MigrationResult, error) {
	source, err := backend.OpenEmbedded(ctx, rt.settings, rt.logger)
	if err != nil {
		return models.MigrationResult{}, fmt.Errorf("failed to open local database: %w", err)
	}
	defer source.Close()

	target, err := backend.OpenMigrationTarget(ctx, rt.settings, rt.logger)
	if err != nil {
		return models.MigrationResult{}, fmt.Errorf("target connection failed: %w", err)
	}
	defer target.Close()

	return migrate.NewRunner(source, target, rt.logger.Named("migrate")).Run(ctx)
}

// testConnection probes the remote backend regardless of the active one
func (rt *runtime) testConnection(ctx context.Context) (string, error) {
	target, err := backend.OpenMigrationTarget(ctx, rt.settings, rt.logger)
	if err != nil {
		return "", err
	}
	defer target.Close()
	if err := target.Ping(ctx); err != nil {
		return "", err
	}
	return target.Location(), nil
}

// call runs a façade operation. On failure it prints "Error <doing>: <msg>"
// and returns the error; a cancelled operation prints a notice and returns
// errCancelled.
func (rt *runtime) call(c *cli.Context, doing, op string, args any) (any, error) {
	resp := rt.facade.Call(c.Context, op, args)
	if resp.Success {
		return resp.Data, nil
	}
	if resp.Error.Code == string(apperr.KindCancelled) {
		fmt.Fprintln(out(c), "Cancelled.")
		return nil, errCancelled
	}
	fmt.Fprintf(c.App.ErrWriter, "Error %s: %s\n", doing, resp.Error.Message)
	return nil, reportedError{errors.New(resp.Error.Message)}
}

var errCancelled = errors.New("cancelled")

// reportedError marks an error the command already printed
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

// Reported reports whether err was already shown to the user
func Reported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}

// report prints "Error <doing>: <err>" and returns err marked as reported
func report(c *cli.Context, doing string, err error) error {
	fmt.Fprintf(c.App.ErrWriter, "Error %s: %v\n", doing, err)
	return reportedError{err}
}

// ignoreCancel turns a user abort into a clean exit
func ignoreCancel(err error) error {
	if errors.Is(err, errCancelled) {
		return nil
	}
	return err
}

func out(c *cli.Context) io.Writer {
	return c.App.Writer
}
