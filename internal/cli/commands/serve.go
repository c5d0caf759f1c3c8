package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/kutbudev/promptvault/internal/server"
)

// NewServeCommand exposes the request façade over HTTP.
func NewServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the operation API over HTTP on localhost",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "Listen host (default from config)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Listen port (default from config)"},
			&cli.StringSliceFlag{Name: "cors-origin", Usage: "Allowed browser origin, * for any (repeatable)"},
			&cli.StringFlag{Name: "token", EnvVars: []string{"PROMPTVAULT_SERVER_TOKEN"}, Usage: "Bearer token clients must send (default: generated per session)"},
		},
		Action: func(c *cli.Context) error {
			rt, err := openRuntimeWith(c, map[string]any{"log.level": "info"})
			if err != nil {
				return err
			}
			defer rt.Close()

			cfg := rt.settings.Server
			if c.IsSet("host") {
				cfg.Host = c.String("host")
			}
			if c.IsSet("port") {
				cfg.Port = c.Int("port")
			}
			if c.IsSet("cors-origin") {
				cfg.CORSOrigins = c.StringSlice("cors-origin")
			}
			if c.IsSet("token") {
				cfg.Token = c.String("token")
			}
			if cfg.Token == "" {
				cfg.Token = uuid.NewString()
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(rt.facade, server.Options{
				Addr:        cfg.Addr(),
				CORSOrigins: cfg.CORSOrigins,
				Token:       cfg.Token,
			}, rt.logger.Named("http"))

			fmt.Fprintf(out(c), "🚀 Serving %s backend on http://%s (Ctrl-C to stop)\n", rt.settings.Backend, cfg.Addr())
			fmt.Fprintf(out(c), "🔑 Authorization: Bearer %s\n", cfg.Token)
			if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
				rt.logger.Error("Server stopped", zap.Error(err))
				return report(c, "serving", err)
			}
			if ctx.Err() == context.Canceled {
				fmt.Fprintln(out(c), "👋 Server stopped.")
			}
			return nil
		},
	}
}
