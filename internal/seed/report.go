package seed

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/okian/trainerscope/internal/domain/trend"
	"github.com/okian/trainerscope/internal/domain/types"
)

// Printer renders run results as text tables.
type Printer struct {
	w       io.Writer
	colored bool
}

// NewPrinter creates a printer. Severities are coloured when colored is set.
func NewPrinter(w io.Writer, colored bool) *Printer {
	return &Printer{w: w, colored: colored}
}

// Stats prints the submission summary.
func (p *Printer) Stats(s Stats) {
	p.title("Submission")
	p.table([]string{"Generated", "Accepted", "Duplicate", "Failed", "Duration", "Per second"}, [][]string{{
		strconv.Itoa(s.Generated),
		strconv.Itoa(s.Accepted),
		strconv.Itoa(s.Duplicate),
		strconv.Itoa(s.Failed),
		s.Duration.Round(1e6).String(),
		strconv.FormatFloat(s.PerSecond(), 'f', 1, 64),
	}})
}

// Leaderboard prints ranked entries.
func (p *Printer) Leaderboard(entries []types.Entry) {
	p.title("Leaderboard")
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			strconv.Itoa(e.Rank),
			e.UserID,
			strconv.FormatInt(e.TotalXP, 10),
			strconv.Itoa(e.Level),
			e.LevelName,
		})
	}
	p.table([]string{"Rank", "User", "XP", "Level", "Title"}, rows)
}

// Alerts prints alerts under the given heading.
func (p *Printer) Alerts(heading string, alerts []trend.Alert) {
	p.title(heading)
	if len(alerts) == 0 {
		_, _ = fmt.Fprintln(p.w, "no alerts")
		_, _ = fmt.Fprintln(p.w)
		return
	}
	rows := make([][]string, 0, len(alerts))
	for _, a := range alerts {
		subject := a.TrainerID
		if subject == "" {
			subject = a.ManagerID
		}
		rows = append(rows, []string{p.severity(a.Severity), string(a.Type), subject, a.Message})
	}
	p.table([]string{"Severity", "Type", "Subject", "Message"}, rows)
}

func (p *Printer) severity(s trend.Severity) string {
	text := string(s)
	if !p.colored {
		return text
	}
	switch s {
	case trend.SeverityHigh:
		return color.RedString(text)
	case trend.SeverityMedium:
		return color.YellowString(text)
	default:
		return color.GreenString(text)
	}
}

func (p *Printer) title(t string) {
	if p.colored {
		_, _ = color.New(color.Bold, color.FgCyan).Fprintln(p.w, t)
	} else {
		_, _ = fmt.Fprintln(p.w, t)
	}
	_, _ = fmt.Fprintln(p.w, strings.Repeat("=", len(t)))
}

func (p *Printer) table(headers []string, rows [][]string) {
	table := tablewriter.NewTable(p.w,
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
			Row: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.Border{
				Left:   tw.Off,
				Right:  tw.Off,
				Top:    tw.Off,
				Bottom: tw.Off,
			},
			Settings: tw.Settings{
				Separators: tw.Separators{
					BetweenColumns: tw.Off,
				},
			},
		}),
	)
	table.Header(headers)
	for _, row := range rows {
		_ = table.Append(row)
	}
	_ = table.Render()
	_, _ = fmt.Fprintln(p.w)
}
