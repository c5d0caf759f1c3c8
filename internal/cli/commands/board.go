package commands

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v2"

	"github.com/kutbudev/promptvault/internal/models"
)

var (
	boardTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	boardColumnStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
	boardHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	boardDimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// boardColumn is one group with its management prompts
type boardColumn struct {
	group   models.Group
	prompts []models.ManagementPrompt
}

// NewBoardCommand shows a category's groups side by side.
func NewBoardCommand() *cli.Command {
	return &cli.Command{
		Name:      "board",
		Usage:     "Display a category's groups and their prompts as columns",
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
				return report(c, "loading board", err)
			}
			data, err := rt.call(c, "loading board", "category:get", map[string]string{"uuid": categoryID})
			if err != nil {
				return err
			}
			category := data.(*models.Category)

			columns, err := loadBoard(c, rt, categoryID)
			if err != nil {
				return err
			}
			displayBoard(out(c), category, columns, terminalWidth())
			return nil
		},
	}
}

func loadBoard(c *cli.Context, rt *runtime, categoryID string) ([]boardColumn, error) {
	data, err := rt.call(c, "loading groups", "group:list", map[string]string{"category_uuid": categoryID})
	if err != nil {
		return nil, err
	}
	groups := data.([]models.Group)
	columns := make([]boardColumn, 0, len(groups))
	for _, g := range groups {
		data, err := rt.call(c, "loading management prompts", "management-prompt:list", map[string]string{"group_uuid": g.UUID})
		if err != nil {
			return nil, err
		}
		columns = append(columns, boardColumn{group: g, prompts: data.([]models.ManagementPrompt)})
	}
	return columns, nil
}

func displayBoard(w io.Writer, category *models.Category, columns []boardColumn, width int) {
	fmt.Fprintln(w, boardTitleStyle.Render("📋 "+category.Name))
	fmt.Fprintln(w)
	if len(columns) == 0 {
		fmt.Fprintln(w, "No groups in this category.")
		return
	}

	colWidth := 28
	if perCol := width/len(columns) - 4; perCol > colWidth && perCol < 48 {
		colWidth = perCol
	}

	total := 0
	rendered := make([]string, len(columns))
	for i, col := range columns {
		body := boardHeaderStyle.Render(truncateString(col.group.Name, colWidth)) + "\n"
		body += boardDimStyle.Render(truncateString(formatVars(col.group.GlobalVariables), colWidth)) + "\n"
		if len(col.prompts) == 0 {
			body += boardDimStyle.Render("(empty)")
		}
		for j, mp := range col.prompts {
			if j > 0 {
				body += "\n"
			}
			body += fmt.Sprintf("%s %s", shortID(mp.UUID), truncateString(mp.Name, colWidth-9))
		}
		rendered[i] = boardColumnStyle.Width(colWidth).Render(body)
		total += len(col.prompts)
	}

	fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Summary: %d groups, %d management prompts\n", len(columns), total)
}
