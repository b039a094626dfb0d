package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/prunepack/pkg/errors"
	"github.com/matzehuels/prunepack/pkg/pipeline"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleHighlight for emphasized values.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)

	// StyleError for failures.
	StyleError = lipgloss.NewStyle().Foreground(colorRed)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleHeader  = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + msg)
}

// printError prints an error message.
func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconError.Render(iconError) + " " + msg)
}

// printWarning prints a warning message.
func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(msg))
}

// printInfo prints an info/status message.
func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + msg)
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println("  " + StyleDim.Render(msg))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Println(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

// printNewline prints an empty line.
func printNewline() {
	fmt.Println()
}

// =============================================================================
// Run Summaries
// =============================================================================

// printSummary prints the per-unit outcome table of a run followed by each
// failure's cause.
func printSummary(s *pipeline.Summary, packaged bool) {
	printNewline()
	title := fmt.Sprintf("%s · %d unit(s) · %s", s.Ecosystem, len(s.Results), s.Duration.Round(time.Millisecond))
	fmt.Println(StyleTitle.Render(title))
	if len(s.Results) == 0 {
		printDetail("no units")
		return
	}
	fmt.Println(summaryTable(s, packaged).Render())

	for _, r := range s.Failed() {
		printError("%s: %s", r.Unit.Name, errors.UserMessage(r.Err))
	}
}

// summaryTable renders one row per unit. packaged adds archive columns.
func summaryTable(s *pipeline.Summary, packaged bool) *table.Table {
	headers := []string{"Unit", "Modules", "Paths"}
	if packaged {
		headers = append(headers, "Entries", "Size")
	}
	headers = append(headers, "Time", "Note")

	rows := make([][]string, 0, len(s.Results))
	for _, r := range s.Results {
		row := []string{r.Unit.Name, countCell(r, len(r.Modules)), countCell(r, len(r.Paths))}
		if packaged {
			entries, size := "—", "—"
			if r.Artifact != nil {
				entries = strconv.Itoa(r.Artifact.Entries)
				size = formatBytes(r.Artifact.Size)
			}
			row = append(row, entries, size)
		}
		row = append(row, r.Duration.Round(time.Millisecond).String(), unitNote(r))
		rows = append(rows, row)
	}

	noteCol := len(headers) - 1
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			base := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return styleHeader.Padding(0, 1)
			}
			r := s.Results[row]
			switch {
			case r.Failed():
				return base.Foreground(colorRed)
			case col == noteCol && r.FullTree:
				return base.Foreground(colorYellow)
			case col == 0:
				return base.Foreground(colorWhite)
			}
			return base.Foreground(colorGray)
		})
}

// countCell shows n, or "all" when the unit carries the full shared tree.
func countCell(r *pipeline.UnitResult, n int) string {
	switch {
	case r.Failed():
		return "—"
	case r.FullTree:
		return "all"
	}
	return strconv.Itoa(n)
}

func unitNote(r *pipeline.UnitResult) string {
	switch {
	case r.Failed():
		if code := errors.GetCode(r.Err); code != "" {
			return string(code)
		}
		return "failed"
	case r.FullTree:
		return "full tree: " + r.Reason
	case len(r.Unmatched) > 0:
		return fmt.Sprintf("%d unmatched", len(r.Unmatched))
	}
	return ""
}

// formatBytes renders n with a binary unit suffix.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
