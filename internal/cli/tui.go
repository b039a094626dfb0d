package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/prunepack/pkg/errors"
	"github.com/matzehuels/prunepack/pkg/pipeline"
)

// List styles
var (
	listDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
	detailKeyStyle  = lipgloss.NewStyle().Foreground(colorGray).Width(10)
	detailPaneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)
)

// =============================================================================
// UnitListModel - Interactive unit browser
// =============================================================================

// UnitListModel is the bubbletea model for browsing analyzed units.
type UnitListModel struct {
	Results []*pipeline.UnitResult
	Cursor  int
	Height  int
	Offset  int
	// Detail shows the selected unit's modules and paths.
	Detail bool
}

// NewUnitListModel creates a unit list over the results of every summary.
func NewUnitListModel(summaries []*pipeline.Summary) UnitListModel {
	var results []*pipeline.UnitResult
	for _, s := range summaries {
		results = append(results, s.Results...)
	}
	return UnitListModel{Results: results, Height: 15, Detail: true}
}

func (m UnitListModel) Init() tea.Cmd {
	return nil
}

func (m UnitListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Results)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter", " ":
			m.Detail = !m.Detail
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height/2-4, 5)
	}
	return m, nil
}

func (m UnitListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Units"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ details  q quit"))
	b.WriteString("\n\n")

	if len(m.Results) == 0 {
		b.WriteString(listDimStyle.Render("  no units"))
		b.WriteString("\n")
		return b.String()
	}

	end := min(m.Offset+m.Height, len(m.Results))
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		r := m.Results[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{
			cursor,
			r.Unit.Name,
			string(r.Unit.Ecosystem),
			countCell(r, len(r.Modules)),
			countCell(r, len(r.Paths)),
			unitNote(r),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Unit", "Ecosystem", "Modules", "Paths", "Note").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			idx := m.Offset + row
			if idx >= len(m.Results) {
				return lipgloss.NewStyle()
			}
			r := m.Results[idx]
			base := lipgloss.NewStyle()
			if idx == m.Cursor {
				base = base.Bold(true)
			}
			switch {
			case r.Failed():
				return base.Foreground(colorRed)
			case r.FullTree:
				return base.Foreground(colorYellow)
			case idx == m.Cursor:
				return base.Foreground(colorGreen)
			}
			return base.Foreground(colorGray)
		})

	b.WriteString(t.Render())
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Results))))
	b.WriteString("\n")

	if m.Detail {
		b.WriteString(detailPaneStyle.Render(unitDetail(m.Results[m.Cursor])))
		b.WriteString("\n")
	}
	return b.String()
}

// unitDetail renders the modules and paths of one unit.
func unitDetail(r *pipeline.UnitResult) string {
	var b strings.Builder
	line := func(key, value string) {
		b.WriteString(detailKeyStyle.Render(key) + " " + value + "\n")
	}

	line("unit", StyleHighlight.Render(r.Unit.Name))
	line("dir", StyleDim.Render(r.Unit.Dir))
	switch {
	case r.Failed():
		line("error", StyleError.Render(errors.UserMessage(r.Err)))
	case r.FullTree:
		line("shared", StyleWarning.Render("full tree ("+r.Reason+")"))
	default:
		line("modules", StyleNumber.Render(strconv.Itoa(len(r.Modules)))+" "+strings.Join(r.Modules, ", "))
		for i, p := range r.Paths {
			key := ""
			if i == 0 {
				key = "paths"
			}
			value := StyleValue.Render(p.Rel)
			if p.Ancestor {
				value = StyleDim.Render(p.Rel + "/ (dir only)")
			}
			line(key, value)
		}
	}
	if len(r.Unmatched) > 0 {
		line("unmatched", StyleWarning.Render(strings.Join(r.Unmatched, ", ")))
	}
	return strings.TrimRight(b.String(), "\n")
}
