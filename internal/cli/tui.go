package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/chartforge/pkg/catalog"
)

var listDimStyle = lipgloss.NewStyle().Foreground(colorDim)

// =============================================================================
// FamilyListModel - Interactive chart family selection
// =============================================================================

// FamilyListModel is the bubbletea model behind generate --pick. Typing
// filters the list by name, shape or keyword.
type FamilyListModel struct {
	Families []catalog.Family
	Suggest  string
	Filter   string
	Cursor   int
	Offset   int
	Height   int
	Selected *catalog.Family
}

// NewFamilyListModel lists families with the cursor on suggest, the family
// the selector would pick on its own.
func NewFamilyListModel(families []catalog.Family, suggest string) FamilyListModel {
	m := FamilyListModel{Families: families, Suggest: suggest, Height: 15}
	for i, f := range families {
		if f.Name == suggest {
			m.Cursor = i
		}
	}
	m.scroll()
	return m
}

// visible returns the families matching the current filter.
func (m FamilyListModel) visible() []catalog.Family {
	if m.Filter == "" {
		return m.Families
	}
	q := strings.ToLower(m.Filter)
	var out []catalog.Family
	for _, f := range m.Families {
		if familyMatches(f, q) {
			out = append(out, f)
		}
	}
	return out
}

func familyMatches(f catalog.Family, q string) bool {
	if strings.Contains(strings.ToLower(f.Name), q) || strings.Contains(string(f.Shape), q) {
		return true
	}
	for _, k := range f.Keywords {
		if strings.Contains(strings.ToLower(k), q) {
			return true
		}
	}
	return false
}

func (m *FamilyListModel) scroll() {
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

func (m FamilyListModel) Init() tea.Cmd {
	return nil
}

func (m FamilyListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyUp:
			if m.Cursor > 0 {
				m.Cursor--
			}
		case tea.KeyDown:
			if m.Cursor < len(m.visible())-1 {
				m.Cursor++
			}
		case tea.KeyBackspace:
			if m.Filter != "" {
				r := []rune(m.Filter)
				m.Filter = string(r[:len(r)-1])
				m.Cursor, m.Offset = 0, 0
			}
		case tea.KeyEnter:
			if v := m.visible(); len(v) > 0 {
				f := v[m.Cursor]
				m.Selected = &f
				return m, tea.Quit
			}
		case tea.KeyRunes:
			m.Filter += string(msg.Runes)
			m.Cursor, m.Offset = 0, 0
		}
		m.scroll()
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-8, 5)
		m.scroll()
	}
	return m, nil
}

func (m FamilyListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Chart Family"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  type to filter  esc quit"))
	b.WriteString("\n")
	if m.Filter != "" {
		b.WriteString(StyleHighlight.Render("filter: " + m.Filter))
	}
	b.WriteString("\n")

	families := m.visible()
	end := min(m.Offset+m.Height, len(families))

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		f := families[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		mark := ""
		if f.Name == m.Suggest {
			mark = "suggested"
		}
		rows = append(rows, []string{cursor, f.Name, string(f.Shape), truncate(f.Description, 40), mark})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleTableBorder).
		Headers("", "Family", "Shape", "Description", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleTableHeader
			}
			idx := m.Offset + row
			base := lipgloss.NewStyle()
			if col == 2 || col == 3 {
				base = base.Foreground(colorDim)
			}
			if idx == m.Cursor {
				return base.Foreground(colorGreen).Bold(true)
			}
			if col == 4 {
				return base.Foreground(colorYellow)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", min(m.Cursor+1, len(families)), len(families))))

	return b.String()
}

// pickFamily runs the picker and returns the chosen family name, or "" if
// the user quit.
func pickFamily(families []catalog.Family, suggest string) (string, error) {
	final, err := tea.NewProgram(NewFamilyListModel(families, suggest)).Run()
	if err != nil {
		return "", err
	}
	if m, ok := final.(FamilyListModel); ok && m.Selected != nil {
		return m.Selected.Name, nil
	}
	return "", nil
}
