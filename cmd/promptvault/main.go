package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/kutbudev/promptvault/internal/cli/commands"
)

// Version will be set during build with ldflags
var Version = "0.1.0"

func main() {
	app := &cli.App{
		Name:                 "promptvault",
		Usage:                "Personal library of reusable AI prompts",
		Version:              Version,
		Flags:                commands.GlobalFlags(),
		EnableBashCompletion: true,
		Commands:             commands.Commands(),
	}

	if err := app.Run(os.Args); err != nil {
		if !commands.Reported(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
