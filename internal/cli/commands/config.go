package commands

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/urfave/cli/v2"

	"github.com/kutbudev/promptvault/internal/config"
)

// NewConfigCommand manages settings and remote credentials.
func NewConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage settings and remote backend credentials",
		Subcommands: []*cli.Command{
			configShowCmd(),
			configSetupCmd(),
			configClearCmd(),
			configTestCmd(),
		},
		Action: func(c *cli.Context) error {
			return cli.ShowCommandHelp(c, "config")
		},
	}
}

// configShowCmd prints the resolved settings.
func configShowCmd() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Show the active configuration",
		Action: func(c *cli.Context) error {
			settings, err := loadSettings(c)
			if err != nil {
				return report(c, "loading config", err)
			}
			w := out(c)
			fmt.Fprintf(w, "Data dir:   %s\n", settings.DataDir)
			fmt.Fprintf(w, "Backend:    %s\n", settings.Backend)
			fmt.Fprintf(w, "Database:   %s\n", settings.DatabasePath)
			fmt.Fprintf(w, "Log level:  %s\n", settings.Log.Level)
			fmt.Fprintf(w, "Server:     %s\n", settings.Server.Addr())

			creds, source, err := config.ResolveRemote(settings.DataDir)
			if err != nil {
				fmt.Fprintln(w, "Remote:     not configured")
				return nil
			}
			fmt.Fprintf(w, "Remote URL: %s\n", creds.URL)
			fmt.Fprintf(w, "Anon key:   %s\n", config.MaskKey(creds.AnonKey))
			fmt.Fprintf(w, "Source:     %s\n", source)
			return nil
		},
	}
}

// configSetupCmd stores remote credentials, asking for what the flags omit.
func configSetupCmd() *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Save the remote backend URL and anon key",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Usage: "Remote backend URL"},
			&cli.StringFlag{Name: "anon-key", Usage: "Remote backend anon key"},
			&cli.BoolFlag{Name: "encrypt", Usage: "Store the credentials encrypted", Value: true},
		},
		Action: func(c *cli.Context) error {
			settings, err := loadSettings(c)
			if err != nil {
				return report(c, "loading config", err)
			}

			creds := config.RemoteCredentials{
				URL:     strings.TrimSpace(c.String("url")),
				AnonKey: strings.TrimSpace(c.String("anon-key")),
			}
			if creds.URL == "" || creds.AnonKey == "" {
				if !isInteractive() {
					return fmt.Errorf("--url and --anon-key are required when not running in a terminal")
				}
				var questions []*survey.Question
				if creds.URL == "" {
					questions = append(questions, &survey.Question{
						Name:     "url",
						Prompt:   &survey.Input{Message: "Remote URL:"},
						Validate: survey.Required,
					})
				}
				if creds.AnonKey == "" {
					questions = append(questions, &survey.Question{
						Name:     "anonkey",
						Prompt:   &survey.Password{Message: "Anon key:"},
						Validate: survey.Required,
					})
				}
				answers := struct {
					URL     string `survey:"url"`
					AnonKey string `survey:"anonkey"`
				}{URL: creds.URL, AnonKey: creds.AnonKey}
				if err := survey.Ask(questions, &answers); err != nil {
					return ignoreCancel(cancelledPrompt(err))
				}
				creds.URL = strings.TrimSpace(answers.URL)
				creds.AnonKey = strings.TrimSpace(answers.AnonKey)
			}
			if err := creds.Validate(); err != nil {
				return report(c, "saving config", err)
			}

			path, err := config.SaveRemote(settings.DataDir, creds, c.Bool("encrypt"))
			if err != nil {
				return report(c, "saving config", err)
			}
			fmt.Fprintf(out(c), "✅ Remote credentials saved to %s\n", path)
			fmt.Fprintln(out(c), "Use '--backend remote' or set backend: remote in config.yaml to use them.")
			return nil
		},
	}
}

// configClearCmd removes stored remote credentials.
func configClearCmd() *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Remove stored remote credentials",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Do not ask for confirmation"},
		},
		Action: func(c *cli.Context) error {
			settings, err := loadSettings(c)
			if err != nil {
				return report(c, "loading config", err)
			}
			if ok, err := confirmAction(c, "Remove the stored remote credentials?"); !ok {
				return err
			}
			if err := config.ClearRemote(settings.DataDir); err != nil {
				return report(c, "clearing config", err)
			}
			fmt.Fprintln(out(c), "🗑️ Remote credentials removed.")
			return nil
		},
	}
}

// configTestCmd checks that the remote backend answers.
func configTestCmd() *cli.Command {
	return &cli.Command{
		Name:  "test",
		Usage: "Test the connection to the remote backend",
		Action: func(c *cli.Context) error {
			rt, err := openRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			data, err := rt.call(c, "testing connection", "config:test-connection", nil)
			if err != nil {
				return err
			}
			info := data.(map[string]any)
			fmt.Fprintf(out(c), "✅ Connected to %v\n", info["location"])
			return nil
		},
	}
}

// cancelledPrompt maps Ctrl-C on a survey form to errCancelled
func cancelledPrompt(err error) error {
	if err = promptError(err, "Cancelled"); err != nil && isAbort(err) {
		return errCancelled
	}
	return err
}
