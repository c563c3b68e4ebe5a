package tui

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/vvka-141/crmingest/internal/export"
	"github.com/vvka-141/crmingest/internal/ingest"
	"github.com/vvka-141/crmingest/pkg/crmingest"
)

// RenderReport writes the end-of-run summary. Styled output uses colors and a
// bordered box; plain output is one key/value line per fact.
func RenderReport(w io.Writer, r *ingest.Report, styled bool) error {
	if r == nil {
		return nil
	}
	if !styled {
		_, err := io.WriteString(w, plainReport(r))
		return err
	}

	var b strings.Builder
	status := SuccessStyle.Render(SymbolCheck + " " + r.Status)
	switch {
	case r.DryRun && r.Succeeded():
		status = WarningStyle.Render(SymbolDry + " dry run, nothing written")
	case !r.Succeeded():
		status = ErrorStyle.Render(SymbolCross + " " + r.Status)
	}
	b.WriteString(TitleStyle.Render(fmt.Sprintf("Ingest %04d-%02d", r.Year, r.Month)))
	b.WriteString("\n")
	b.WriteString(status)
	b.WriteString("\n\n")

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(LabelStyle).
		Headers("step", "file rows", "written", "details", "time")
	for _, e := range r.Steps {
		res, ok := r.Result(e)
		written := "-"
		if ok {
			written = strconv.Itoa(res.Rows)
			if !res.Committed {
				written = LabelStyle.Render(written + " (not committed)")
			}
		}
		t.Row(e.String(), fileRows(r, e), written, details(res), duration(res.Duration))
	}
	b.WriteString(t.String())
	b.WriteString("\n")

	if r.Error != "" {
		b.WriteString(ErrorStyle.Render(r.Error))
		b.WriteString("\n")
	}
	if r.ManifestPath != "" {
		b.WriteString(LabelStyle.Render("manifest " + r.ManifestPath))
		b.WriteString("\n")
	}
	b.WriteString(LabelStyle.Render(fmt.Sprintf("run %s in %s", r.RunID, duration(r.Duration()))))
	b.WriteString("\n")

	_, err := io.WriteString(w, BoxStyle.Render(strings.TrimRight(b.String(), "\n"))+"\n")
	return err
}

func plainReport(r *ingest.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: %s\n", r.RunID, r.Status)
	fmt.Fprintf(&b, "month %04d-%02d, ingestion date %s", r.Year, r.Month, r.IngestionDate)
	if r.DryRun {
		b.WriteString(", dry run")
	}
	if r.Atomic {
		b.WriteString(", atomic")
	}
	b.WriteString("\n")
	for _, e := range r.Steps {
		res, ok := r.Result(e)
		if !ok {
			fmt.Fprintf(&b, "%s: not run\n", e)
			continue
		}
		fmt.Fprintf(&b, "%s: %d rows written", e, res.Rows)
		if d := details(res); d != "" {
			fmt.Fprintf(&b, " (%s)", d)
		}
		if !res.Committed {
			b.WriteString(" [not committed]")
		}
		b.WriteString("\n")
	}
	if r.Error != "" {
		fmt.Fprintf(&b, "error: %s\n", r.Error)
	}
	if r.ManifestPath != "" {
		fmt.Fprintf(&b, "manifest: %s\n", r.ManifestPath)
	}
	return b.String()
}

func details(res ingest.StepResult) string {
	var parts []string
	add := func(n int, what string) {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, what))
		}
	}
	add(res.ClientsAdded, "clients added")
	add(res.Placeholders, "placeholders")
	add(res.Duplicates, "duplicates")
	add(res.Orphans, "orphans")
	add(res.JoinDates, "join dates")
	add(res.Dropped, "dropped")
	return strings.Join(parts, ", ")
}

func fileRows(r *ingest.Report, e crmingest.Entity) string {
	for _, f := range r.Files {
		if f.Entity == e {
			return strconv.Itoa(f.Rows)
		}
	}
	return "-"
}

func duration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}

// RenderSources lists monthly exports and whether they were ingested.
// Plain output is tab separated for scripts.
func RenderSources(w io.Writer, sources []ingest.SourceStatus, styled bool) error {
	if len(sources) == 0 {
		_, err := io.WriteString(w, "no monthly exports found\n")
		return err
	}
	if !styled {
		var b strings.Builder
		for _, s := range sources {
			fmt.Fprintf(&b, "%s\t%04d-%02d\t%s\t%s\t%t\n", s.Entity, s.Year, s.Month, s.Path, s.Checksum, s.Ingested)
		}
		_, err := io.WriteString(w, b.String())
		return err
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(LabelStyle).
		Headers("month", "entity", "file", "sha256", "ingested")
	for _, s := range sources {
		ingested := WarningStyle.Render("no")
		if s.Ingested {
			ingested = SuccessStyle.Render(SymbolCheck)
		}
		t.Row(fmt.Sprintf("%04d-%02d", s.Year, s.Month), s.Entity.String(), s.Path, shortSum(s.Checksum), ingested)
	}
	_, err := io.WriteString(w, t.String()+"\n")
	return err
}

// RenderExports lists the files written by an export run.
func RenderExports(w io.Writer, results []export.Result, styled bool) error {
	var b strings.Builder
	for _, r := range results {
		if styled {
			fmt.Fprintf(&b, "%s %s %s\n", SuccessStyle.Render(SymbolCheck), r.Path, LabelStyle.Render(fmt.Sprintf("(%d rows)", r.Rows)))
			continue
		}
		fmt.Fprintf(&b, "%s\t%d\n", r.Path, r.Rows)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func shortSum(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}
