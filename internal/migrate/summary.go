package migrate

import (
	"fmt"
	"io"

	"github.com/kutbudev/promptvault/internal/models"
)

// WriteSummary prints per-kind counts followed by the numbered errors
func WriteSummary(w io.Writer, result models.MigrationResult) {
	fmt.Fprintln(w, "Summary:")
	fmt.Fprintf(w, "  ✓ Prompts: %d\n", result.Prompts)
	fmt.Fprintf(w, "  ✓ Categories: %d\n", result.Categories)
	fmt.Fprintf(w, "  ✓ Groups: %d\n", result.Groups)
	fmt.Fprintf(w, "  ✓ ManagementPrompts: %d\n", result.ManagementPrompts)
	fmt.Fprintf(w, "  ✓ PromptResults: %d\n", result.PromptResults)

	if len(result.Errors) == 0 {
		fmt.Fprintln(w, "\n✓ All records migrated successfully!")
		return
	}
	fmt.Fprintf(w, "\n⚠️  %d errors occurred:\n", len(result.Errors))
	for i, msg := range result.Errors {
		fmt.Fprintf(w, "  %d. %s\n", i+1, msg)
	}
}
