package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/urfave/cli/v2"

	"github.com/kutbudev/promptvault/internal/apperr"
)

// surveyPicker asks for export and import paths on the terminal
type surveyPicker struct{}

func (surveyPicker) SavePath(_ context.Context, defaultName string) (string, error) {
	if !isInteractive() {
		return "", apperr.Validation("path is required when not running in a terminal")
	}
	var path string
	err := survey.AskOne(&survey.Input{
		Message: "Export to:",
		Default: defaultName,
	}, &path, survey.WithValidator(survey.Required))
	return strings.TrimSpace(path), promptError(err, "Export cancelled")
}

func (surveyPicker) OpenPath(_ context.Context) (string, error) {
	if !isInteractive() {
		return "", apperr.Validation("path is required when not running in a terminal")
	}
	var path string
	err := survey.AskOne(&survey.Input{
		Message: "Import from:",
		Suggest: suggestJSONFiles,
	}, &path, survey.WithValidator(survey.Required))
	return strings.TrimSpace(path), promptError(err, "Import cancelled")
}

// promptError maps Ctrl-C on a survey prompt to a cancellation
func promptError(err error, cancelled string) error {
	if errors.Is(err, terminal.InterruptErr) {
		return apperr.Cancelled(cancelled)
	}
	return err
}

func isAbort(err error) bool {
	return apperr.KindOf(err) == apperr.KindCancelled
}

// confirm asks a yes/no question; assumeYes skips it
func confirm(message string, assumeYes bool) (bool, error) {
	if assumeYes {
		return true, nil
	}
	if !isInteractive() {
		return false, apperr.Validation("confirmation required: pass --yes when not running in a terminal")
	}
	ok := false
	err := survey.AskOne(&survey.Confirm{Message: message}, &ok)
	return ok, promptError(err, "Cancelled")
}

// suggestJSONFiles completes paths to directories and .json files
func suggestJSONFiles(toComplete string) []string {
	matches, _ := filepath.Glob(toComplete + "*")
	var out []string
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		if info.IsDir() {
			out = append(out, m+string(filepath.Separator))
		} else if strings.HasSuffix(strings.ToLower(m), ".json") {
			out = append(out, m)
		}
	}
	return out
}

// confirmAction asks before a destructive command, honouring --yes. A refusal
// or abort prints "Cancelled." and reports false with a nil error.
func confirmAction(c *cli.Context, message string) (bool, error) {
	ok, err := confirm(message, c.Bool("yes"))
	if isAbort(err) || (err == nil && !ok) {
		fmt.Fprintln(out(c), "Cancelled.")
		return false, nil
	}
	if err != nil {
		return false, report(c, "confirming", errors.New(apperr.Message(err)))
	}
	return true, nil
}
