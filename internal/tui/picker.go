package tui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrNoItems is returned when there is nothing to pick from
var ErrNoItems = errors.New("nothing to choose from")

type pickerKeys struct {
	Up     key.Binding
	Down   key.Binding
	Choose key.Binding
	Cancel key.Binding
}

var defaultPickerKeys = pickerKeys{
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Choose: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
	Cancel: key.NewBinding(key.WithKeys("esc", "q", "ctrl+c"), key.WithHelp("esc/q", "cancel")),
}

// pickerModel is a single-choice list, used for the device chooser
type pickerModel struct {
	title  string
	items  []string
	cursor int
	chosen int
	keys   pickerKeys
}

func newPicker(title string, items []string) pickerModel {
	return pickerModel{title: title, items: items, chosen: -1, keys: defaultPickerKeys}
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(keyMsg, m.keys.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case key.Matches(keyMsg, m.keys.Choose):
		m.chosen = m.cursor
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.Cancel):
		return m, tea.Quit
	}
	return m, nil
}

func (m pickerModel) View() string {
	if m.chosen >= 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(m.title))
	b.WriteString("\n")
	for i, item := range m.items {
		if i == m.cursor {
			b.WriteString(SelectedItemStyle.Render("> " + item))
		} else {
			b.WriteString(ItemStyle.Render(item))
		}
		b.WriteString("\n")
	}

	help := []string{
		m.keys.Up.Help().Key + " " + m.keys.Up.Help().Desc,
		m.keys.Down.Help().Key + " " + m.keys.Down.Help().Desc,
		m.keys.Choose.Help().Key + " " + m.keys.Choose.Help().Desc,
		m.keys.Cancel.Help().Key + " " + m.keys.Cancel.Help().Desc,
	}
	b.WriteString(HelpStyle.Render(strings.Join(help, " • ")))
	b.WriteString("\n")
	return b.String()
}

// Pick shows items and returns the index the user selected. ok is false when
// the user cancels.
func Pick(title string, items []string, in io.Reader, out io.Writer) (index int, ok bool, err error) {
	if len(items) == 0 {
		return 0, false, ErrNoItems
	}

	final, err := tea.NewProgram(newPicker(title, items), tea.WithInput(in), tea.WithOutput(out)).Run()
	if err != nil {
		return 0, false, fmt.Errorf("device chooser failed: %w", err)
	}

	m := final.(pickerModel)
	if m.chosen < 0 {
		return 0, false, nil
	}
	return m.chosen, true, nil
}
