package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/engine"
	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// table renders left-aligned columns, styling each cell after padding.
type table struct {
	headers []string
	rows    [][]string
	styles  [][]lipgloss.Style
}

func newTable(headers ...string) *table {
	return &table{headers: headers}
}

func (t *table) add(styles []lipgloss.Style, cells ...string) {
	t.rows = append(t.rows, cells)
	t.styles = append(t.styles, styles)
}

func (t *table) render() string {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, c := range row {
			if w := lipgloss.Width(c); i < len(widths) && w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	for i, h := range t.headers {
		b.WriteString(TableHeaderStyle.Width(widths[i] + 2).Render(h))
	}
	b.WriteString("\n")
	for r, row := range t.rows {
		for i, c := range row {
			if i >= len(widths) {
				break
			}
			style := TableCellStyle
			if r < len(t.styles) && i < len(t.styles[r]) {
				style = t.styles[r][i].PaddingRight(2)
			}
			b.WriteString(style.Width(widths[i] + 2).Render(c))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatTotal(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return common.FormatCHF(*d)
}

// RenderReport writes a human-readable reconciliation report.
// Verbose adds the contributing items of every rule.
func RenderReport(w io.Writer, report *engine.Report, verbose bool) error {
	var b strings.Builder

	b.WriteString(FormatTitle("Reconciliation " + report.ClientID))
	b.WriteString("\n")
	b.WriteString(renderDocuments(report))
	b.WriteString("\n")

	t := newTable("Rule", "Status", "Steuer", "FiBu", "Differenz", "Hinweis")
	for _, res := range report.Results {
		diff := "-"
		if res.HasBothSides() {
			diff = common.FormatSwiss(res.Difference)
		}
		t.add(
			[]lipgloss.Style{BoldStyle, StatusStyle(res.Status), TableCellStyle, TableCellStyle, TableCellStyle, SubtleStyle},
			res.RuleID, statusLabel(res.Status), formatTotal(res.TaxTotal), formatTotal(res.FibuTotal), diff, res.Hint,
		)
	}
	b.WriteString(t.render())

	if verbose {
		for _, res := range report.Results {
			b.WriteString("\n")
			b.WriteString(BoldStyle.Render(res.RuleID + " " + res.Description))
			b.WriteString("\n")
			b.WriteString(renderItems(append(append([]model.ExtractedItem(nil), res.TaxItems...), res.FibuItems...)))
		}
	}

	if len(report.Suggestions) > 0 {
		b.WriteString("\n")
		b.WriteString(FormatInfo(fmt.Sprintf("%d new suggestion(s). Review with: balance suggestions review %s",
			len(report.Suggestions), report.ClientID)))
		b.WriteString("\n")
	}
	if report.Degraded {
		b.WriteString(FormatWarning("Knowledge store unavailable, defaults were used"))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func statusLabel(status model.AuditStatus) string {
	icon := "·"
	switch status {
	case model.AuditMatch:
		icon = SuccessIcon
	case model.AuditMismatch:
		icon = ErrorIcon
	case model.AuditIncomplete:
		icon = "!"
	case model.AuditInfo:
		icon = "i"
	}
	return icon + " " + string(status)
}

func renderDocuments(report *engine.Report) string {
	var excluded, incomplete int
	for _, d := range report.Documents {
		switch d.Status {
		case model.DocumentStatusExcluded:
			excluded++
		case model.DocumentStatusIncomplete:
			incomplete++
		}
	}

	line := fmt.Sprintf("Documents: %d (%d excluded, %d incomplete), items: %d",
		len(report.Documents), excluded, incomplete, len(report.Items))
	out := SubtleStyle.Render(line) + "\n"
	for _, d := range report.IncompleteDocuments() {
		out += FormatWarning("Incomplete: "+d.Filename) + "\n"
	}
	return out
}

func renderItems(items []model.ExtractedItem) string {
	if len(items) == 0 {
		return SubtleStyle.Render("  no items") + "\n"
	}

	t := newTable("Document", "Tag", "Account", "Label", "Column", "Amount")
	for _, it := range items {
		column := string(it.ColumnSource)
		if it.ColumnName != "" {
			column = it.ColumnName + " (" + column + ")"
		}
		style := TableCellStyle
		if it.Degraded {
			style = WarningStyle
		}
		t.add(
			[]lipgloss.Style{style, style, style, style, SubtleStyle, style},
			it.Filename, string(it.Tag), it.Account, it.Label, column, common.FormatSwiss(it.Amount),
		)
	}
	return t.render()
}

// RenderSuggestions writes a list of suggestions.
func RenderSuggestions(w io.Writer, suggestions []model.LearningSuggestion) error {
	if len(suggestions) == 0 {
		_, err := fmt.Fprintln(w, FormatInfo("No suggestions"))
		return err
	}

	t := newTable("ID", "Status", "Key", "Title", "Created")
	for _, s := range suggestions {
		style := TableCellStyle
		switch s.Status {
		case model.SuggestionAccepted:
			style = SuccessStyle
		case model.SuggestionRejected:
			style = SubtleStyle
		}
		t.add(
			[]lipgloss.Style{SubtleStyle, style, TableCellStyle, TableCellStyle, SubtleStyle},
			s.ID, string(s.Status), string(s.Knowledge.Key), s.Title, s.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_, err := io.WriteString(w, t.render())
	return err
}

// RenderKnowledge writes a client's confirmed knowledge.
func RenderKnowledge(w io.Writer, entries []model.ClientKnowledge) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, FormatInfo("Nothing learned yet"))
		return err
	}

	t := newTable("Key", "Subject", "Value", "Updated")
	for _, k := range entries {
		t.add(nil, string(k.Key), k.Subject, string(k.Value), k.UpdatedAt.Format("2006-01-02 15:04"))
	}
	_, err := io.WriteString(w, t.render())
	return err
}
