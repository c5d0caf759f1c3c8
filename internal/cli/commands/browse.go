package commands

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v2"

	"github.com/kutbudev/promptvault/internal/models"
)

// promptItem adapts a prompt to the list component
type promptItem struct {
	prompt models.Prompt
}

func (i promptItem) Title() string {
	if i.prompt.IsFavorite {
		return "★ " + i.prompt.Title
	}
	return i.prompt.Title
}

func (i promptItem) Description() string {
	if i.prompt.Description != nil && *i.prompt.Description != "" {
		return *i.prompt.Description
	}
	return truncateString(i.prompt.Content, 80)
}

func (i promptItem) FilterValue() string {
	return i.prompt.Title + " " + orDash(i.prompt.Tags)
}

// browseModel lists prompts and returns the one picked with enter
type browseModel struct {
	list     list.Model
	selected *models.Prompt
}

func newBrowseModel(prompts []models.Prompt) browseModel {
	items := make([]list.Item, len(prompts))
	for i, p := range prompts {
		items[i] = promptItem{prompt: p}
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("212")).
		Bold(true)

	l := list.New(items, delegate, 0, 0)
	l.Title = "📚 Prompts (enter copies, / filters, q quits)"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	return browseModel{list: l}
}

func (m browseModel) Init() tea.Cmd {
	return nil
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width-2, msg.Height-2)
		return m, nil

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "enter":
			if item, ok := m.list.SelectedItem().(promptItem); ok {
				p := item.prompt
				m.selected = &p
				return m, tea.Quit
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m browseModel) View() string {
	return m.list.View()
}

// NewBrowseCommand opens an interactive prompt picker.
func NewBrowseCommand() *cli.Command {
	return &cli.Command{
		Name:  "browse",
		Usage: "Pick a prompt interactively and copy it to the clipboard",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tag", Aliases: []string{"t"}, Usage: "Only prompts with this tag"},
		},
		Action: func(c *cli.Context) error {
			if !isInteractive() {
				return fmt.Errorf("browse needs a terminal; use 'promptvault prompt list' instead")
			}
			rt, err := openRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			data, err := rt.call(c, "loading prompts", "prompt:search", models.SearchPromptsParams{
				Tag:   c.String("tag"),
				Limit: 1000,
			})
			if err != nil {
				return err
			}
			prompts := data.([]models.Prompt)
			if len(prompts) == 0 {
				fmt.Fprintln(out(c), "No prompts found.")
				return nil
			}

			final, err := tea.NewProgram(newBrowseModel(prompts), tea.WithAltScreen(), tea.WithContext(c.Context)).Run()
			if err != nil {
				return report(c, "browsing", err)
			}
			picked := final.(browseModel).selected
			if picked == nil {
				return nil
			}
			if err := clipboard.WriteAll(picked.Content); err != nil {
				return report(c, "copying to clipboard", err)
			}
			fmt.Fprintf(out(c), "📋 Copied '%s' to the clipboard.\n", picked.Title)
			return nil
		},
	}
}
