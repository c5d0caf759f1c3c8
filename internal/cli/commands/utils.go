package commands

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/kutbudev/promptvault/internal/models"
)

// Helper functions shared across commands

func stringPtr(s string) *string {
	return &s
}

func truncateString(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func shortID(uuid string) string {
	if len(uuid) > 8 {
		return uuid[:8]
	}
	return uuid
}

// requireArg returns the first positional argument or an error naming it
func requireArg(c *cli.Context, name string) (string, error) {
	if c.NArg() == 0 {
		return "", fmt.Errorf("%s is required", name)
	}
	return strings.TrimSpace(c.Args().First()), nil
}

// optionalFlag returns a pointer to the flag value when it was given
func optionalFlag(c *cli.Context, name string) *string {
	if !c.IsSet(name) {
		return nil
	}
	return stringPtr(c.String(name))
}

// parseVars turns repeated key=value flags into a map
func parseVars(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid variable %q (expected key=value)", pair)
		}
		vars[key] = value
	}
	return vars, nil
}

func formatVars(vars models.Variables) string {
	if len(vars) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + vars[k]
	}
	return strings.Join(parts, ", ")
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && isTerminal()
}

// terminalWidth returns the stdout width, or 80 when it is not a terminal
func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

const timeFormat = "2006-01-02 15:04:05"
