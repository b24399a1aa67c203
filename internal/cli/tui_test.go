package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/chartforge/pkg/catalog"
)

func update(t *testing.T, m FamilyListModel, msgs ...tea.Msg) FamilyListModel {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(FamilyListModel)
	}
	return m
}

func TestFamilyListSuggestion(t *testing.T) {
	families := catalog.Default().Families()
	m := NewFamilyListModel(families, "Pie")

	if got := m.visible()[m.Cursor].Name; got != "Pie" {
		t.Fatalf("cursor on %q, want Pie", got)
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.Selected == nil || m.Selected.Name != "Pie" {
		t.Fatalf("Selected = %+v", m.Selected)
	}
}

func TestFamilyListFilter(t *testing.T) {
	m := NewFamilyListModel(catalog.Default().Families(), "Line")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("gauge")})

	v := m.visible()
	if len(v) == 0 {
		t.Fatal("filter matched nothing")
	}
	for _, f := range v {
		if !familyMatches(f, "gauge") {
			t.Errorf("%s does not match filter", f.Name)
		}
	}
	if m.Cursor != 0 {
		t.Errorf("cursor = %d after filtering, want 0", m.Cursor)
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	if m.Filter != "gaug" {
		t.Errorf("Filter = %q after backspace", m.Filter)
	}
}

func TestFamilyListNavigation(t *testing.T) {
	families := catalog.Default().Families()
	m := NewFamilyListModel(families, families[0].Name)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	if m.Cursor != 0 {
		t.Errorf("cursor moved above the first row")
	}
	for range len(families) + 3 {
		m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	}
	if m.Cursor != len(families)-1 {
		t.Errorf("cursor = %d, want %d", m.Cursor, len(families)-1)
	}
	if m.Cursor >= m.Offset+m.Height || m.Cursor < m.Offset {
		t.Errorf("cursor %d outside window [%d, %d)", m.Cursor, m.Offset, m.Offset+m.Height)
	}
}

func TestFamilyListQuit(t *testing.T) {
	m := NewFamilyListModel(catalog.Default().Families(), "Line")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.Selected != nil {
		t.Error("esc should not select")
	}

	empty := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("zzzz")}, tea.KeyMsg{Type: tea.KeyEnter})
	if empty.Selected != nil {
		t.Error("enter on an empty list should not select")
	}
	if !strings.Contains(empty.View(), "filter: zzzz") {
		t.Error("view should show the active filter")
	}
}
