package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/matzehuels/bbflame/pkg/errors"
	"github.com/matzehuels/bbflame/pkg/flame"
	"github.com/matzehuels/bbflame/pkg/viewport"
)

// chrome is the number of terminal lines used by the title and status bar.
const chrome = 3

var (
	boxTextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#0a0a0a"))
	statusStyle  = lipgloss.NewStyle().Foreground(colorGray)
	errorStyle   = lipgloss.NewStyle().Foreground(colorRed)
	pickerCursor = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	pickerNormal = lipgloss.NewStyle().Foreground(colorWhite)
	pickerDim    = lipgloss.NewStyle().Foreground(colorDim)
)

const truncatedMarker = "…"

// =============================================================================
// FlameModel - Interactive flame graph
// =============================================================================

// FlameModel is the bubbletea model of the terminal viewer. One terminal
// column is one flame column and one line is one depth.
type FlameModel struct {
	ctrl   *viewport.Controller
	frame  viewport.Frame
	title  string
	width  int
	height int

	picking bool
	cursor  int
	err     error
}

// NewFlameModel creates a model around a controller with a selected root.
func NewFlameModel(ctrl *viewport.Controller, title string) FlameModel {
	return FlameModel{
		ctrl:   ctrl,
		frame:  ctrl.Last(),
		title:  title,
		cursor: max(ctrl.Active(), 0),
	}
}

func (m FlameModel) Init() tea.Cmd {
	return nil
}

func (m FlameModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m.apply(m.ctrl.Resize(int64(max(msg.Width, 0))))
	case tea.KeyMsg:
		if m.picking {
			return m.updatePicker(msg)
		}
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "left", "h":
			return m.apply(m.ctrl.StepLeft())
		case "right", "l":
			return m.apply(m.ctrl.StepRight())
		case "shift+left", "H", "pgup":
			return m.apply(m.ctrl.ScrollBy(-m.ctrl.Width()))
		case "shift+right", "L", "pgdown":
			return m.apply(m.ctrl.ScrollBy(m.ctrl.Width()))
		case "home", "0":
			return m.apply(m.ctrl.ScrollBy(-m.ctrl.Offset()))
		case "r", "tab":
			m.picking = true
			m.cursor = max(m.ctrl.Active(), 0)
		}
	}
	return m, nil
}

func (m FlameModel) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "q", "esc", "r", "tab":
		m.picking = false
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.ctrl.Roots())-1 {
			m.cursor++
		}
	case "enter":
		m.picking = false
		return m.apply(m.ctrl.SelectRoot(m.cursor))
	}
	return m, nil
}

// apply records the outcome of a controller call.
func (m FlameModel) apply(f viewport.Frame, err error) (tea.Model, tea.Cmd) {
	m.err = err
	if err == nil && m.ctrl.Active() >= 0 {
		m.frame = f
	}
	return m, nil
}

func (m FlameModel) View() string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render(m.title))
	b.WriteString("\n")

	if m.picking {
		b.WriteString(m.pickerView())
		return b.String()
	}

	rows := m.frame.Depth()
	if m.height > 0 {
		rows = min(rows, m.height-chrome)
	}
	b.WriteString(renderRows(m.frame, rows))
	b.WriteString(m.statusView())
	return b.String()
}

func (m FlameModel) pickerView() string {
	var b strings.Builder
	b.WriteString(pickerDim.Render("↑/↓ choose  ⏎ select  esc back"))
	b.WriteString("\n\n")
	for i, label := range m.ctrl.RootLabels() {
		line := "  " + label
		style := pickerNormal
		if i == m.cursor {
			line = "▸ " + label
			style = pickerCursor
		}
		if i == m.ctrl.Active() {
			line += pickerDim.Render("  (active)")
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

func (m FlameModel) statusView() string {
	if m.err != nil {
		return errorStyle.Render(errors.UserMessage(m.err))
	}
	f := m.frame
	parts := []string{
		viewport.RootLabel(f.RootIndex, &flame.Node{Size: f.RootSize}),
		fmt.Sprintf("[%s, %s) of %s", humanize.Comma(f.Offset), humanize.Comma(f.Offset+f.Width), humanize.Comma(f.RootSize)),
		humanize.Comma(int64(f.Stats.Boxes)) + " boxes",
		humanize.Comma(int64(m.ctrl.Engine().Colors().Len())) + " colors",
	}
	if f.AtEnd() {
		parts = append(parts, "end")
	}
	status := statusStyle.Render(strings.Join(parts, " · "))
	help := pickerDim.Render("←/→ pan  ⇧←/⇧→ page  0 start  r roots  q quit")
	return status + "\n" + help
}

// renderRows draws the first n depths of f, one line per depth. Boxes are
// painted with their color and labelled where they are wide enough.
func renderRows(f viewport.Frame, n int) string {
	var b strings.Builder
	for depth := 0; depth < n; depth++ {
		col := int64(0)
		for _, box := range f.Rows[depth] {
			if box.X0 > col {
				b.WriteString(strings.Repeat(" ", int(box.X0-col)))
			}
			b.WriteString(paintBox(box))
			col = box.X1
		}
		if col < f.Width {
			b.WriteString(strings.Repeat(" ", int(f.Width-col)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// paintBox renders one box as Width() cells filled with its color.
func paintBox(box flame.Box) string {
	w := int(box.Width())
	return boxTextStyle.
		Background(lipgloss.Color(box.Color.Hex())).
		Render(fitCells(box.Name, w))
}

// fitCells pads or truncates label to exactly w cells. Boxes narrower than
// three cells are left blank.
func fitCells(label string, w int) string {
	if w < 3 {
		return strings.Repeat(" ", w)
	}
	runes := []rune(label)
	if len(runes) > w {
		runes = append(runes[:w-1], []rune(truncatedMarker)...)
	}
	return string(runes) + strings.Repeat(" ", w-len(runes))
}
