package ui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Mohsinsiddi/dustvault/internal/providers"
)

// ErrNothingSelected is returned when the picker is cancelled or confirmed
// with no rows ticked.
var ErrNothingSelected = errors.New("nothing selected")

// pickerModel is a checklist over dust holdings. Every row starts ticked.
type pickerModel struct {
	title    string
	items    []providers.Holding
	ticked   []bool
	cursor   int
	done     bool
	quitting bool
}

func newPicker(title string, hs []providers.Holding) pickerModel {
	ticked := make([]bool, len(hs))
	for i := range ticked {
		ticked[i] = true
	}
	return pickerModel{title: title, items: hs, ticked: ticked}
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case " ", "x":
		if len(m.items) > 0 {
			m.ticked[m.cursor] = !m.ticked[m.cursor]
		}
	case "a":
		all := !m.allTicked()
		for i := range m.ticked {
			m.ticked[i] = all
		}
	case "enter":
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m pickerModel) allTicked() bool {
	for _, t := range m.ticked {
		if !t {
			return false
		}
	}
	return true
}

func (m pickerModel) selected() []providers.Holding {
	var out []providers.Holding
	for i, h := range m.items {
		if m.ticked[i] {
			out = append(out, h)
		}
	}
	return out
}

func (m pickerModel) View() string {
	if m.quitting || m.done {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n" + StyleTitle.Render("  "+m.title) + "\n\n")

	var usd float64
	for i, h := range m.items {
		box := "[ ]"
		if m.ticked[i] {
			box = StyleSuccess.Render("[x]")
			if h.Priced {
				usd += h.USD
			}
		}
		line := fmt.Sprintf("%s %s %s %s", box,
			padR(StyleValue.Render(h.Token.Symbol), 10),
			padR(h.Amount(), 22),
			StyleMeta.Render(FormatUSD(h.USD, h.Priced)))
		if i == m.cursor {
			sb.WriteString("  ▸ " + line + "\n")
		} else {
			sb.WriteString("    " + line + "\n")
		}
	}
	sb.WriteString("\n" + Meta(fmt.Sprintf("  %d selected · %s", len(m.selected()), FormatUSD(usd, true))) + "\n")
	sb.WriteString(Meta("  [ ↑↓ ] move   [ space ] toggle   [ a ] all   [ enter ] confirm   [ q ] cancel") + "\n")
	return sb.String()
}

// PickDust lets the user untick holdings before a sweep.
func PickDust(title string, hs []providers.Holding) ([]providers.Holding, error) {
	if len(hs) == 0 {
		return nil, ErrNothingSelected
	}
	final, err := tea.NewProgram(newPicker(title, hs), tea.WithAltScreen()).Run()
	if err != nil {
		return nil, fmt.Errorf("picker: %w", err)
	}
	fm := final.(pickerModel)
	if fm.quitting {
		return nil, ErrNothingSelected
	}
	sel := fm.selected()
	if len(sel) == 0 {
		return nil, ErrNothingSelected
	}
	return sel, nil
}
