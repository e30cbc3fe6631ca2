package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/querymap/internal/pipeline"
	"github.com/leapstack-labs/querymap/internal/state"
	"github.com/leapstack-labs/querymap/pkg/inventory"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Renderer writes results to a terminal or pipe in one Format.
type Renderer struct {
	w      io.Writer
	format Format
	styles Styles
	title  cases.Caser
}

// NewRenderer creates a renderer for w.
func NewRenderer(w io.Writer, format Format) *Renderer {
	return &Renderer{
		w:      w,
		format: format,
		styles: NewStyles(w),
		title:  cases.Title(language.English),
	}
}

// Result renders the outcome of an analysis.
func (r *Renderer) Result(res *pipeline.Result) error {
	switch r.format {
	case FormatJSON:
		return writeJSON(r.w, res)
	case FormatCSV:
		return r.csvSections(res.Inventory, res.Groups)
	}

	r.section("tables")
	r.tablesTable(res.Inventory)
	r.section("similar tables")
	r.groupsTable(res.Groups)

	s := res.Stats
	summary := fmt.Sprintf("%d queries processed, %d via token fallback, %d unresolved references",
		s.Records, s.FallbackRecords, s.UnresolvedRefs)
	if s.UnparseableTableLists > 0 {
		summary += fmt.Sprintf(", %d unparseable table lists", s.UnparseableTableLists)
	}
	if res.RunID != "" {
		summary += fmt.Sprintf(" (run %s)", res.RunID)
	}
	r.line(r.styles.muted(summary))
	return nil
}

// Runs renders a list of run summaries.
func (r *Renderer) Runs(runs []state.Run) error {
	switch r.format {
	case FormatJSON:
		if runs == nil {
			runs = []state.Run{}
		}
		return writeJSON(r.w, runs)
	case FormatCSV:
		cw := csv.NewWriter(r.w)
		_ = cw.Write([]string{"id", "created_at", "source", "threshold", "records", "tables", "groups"})
		for _, run := range runs {
			_ = cw.Write(runRow(run))
		}
		cw.Flush()
		return cw.Error()
	}

	if len(runs) == 0 {
		r.line("(0 runs)")
		return nil
	}

	t := r.newTable()
	t.AppendHeader(table.Row{"ID", "Created", "Source", "Threshold", "Records", "Tables", "Groups"})
	for _, run := range runs {
		row := runRow(run)
		t.AppendRow(table.Row{row[0], row[1], row[2], row[3], row[4], row[5], row[6]})
	}
	r.render(t)
	return nil
}

// Run renders one persisted run with its inventory and groups.
func (r *Renderer) Run(run *state.Run) error {
	switch r.format {
	case FormatJSON:
		return writeJSON(r.w, run)
	case FormatCSV:
		return r.csvSections(run.Inventory, run.Groups)
	}

	r.heading(r.title.String("run") + " " + run.ID)
	r.line(fmt.Sprintf("source: %s", run.Source))
	r.line(fmt.Sprintf("created: %s", run.CreatedAt.Local().Format(time.DateTime)))
	r.line(fmt.Sprintf("threshold: %s", formatThreshold(run.Threshold)))
	r.line(fmt.Sprintf("records: %d (%d via token fallback, %d unresolved references)",
		run.Records, run.FallbackRecs, run.UnresolvedRefs))
	r.section("tables")
	r.tablesTable(run.Inventory)
	r.section("similar tables")
	r.groupsTable(run.Groups)
	return nil
}

func (r *Renderer) csvSections(tables []inventory.Table, groups []inventory.Group) error {
	if err := WriteTablesCSV(r.w, tables); err != nil {
		return err
	}
	r.line("")
	return WriteGroupsCSV(r.w, groups)
}

func (r *Renderer) tablesTable(tables []inventory.Table) {
	if len(tables) == 0 {
		r.line("(0 tables)")
		return
	}
	t := r.newTable()
	t.AppendHeader(table.Row{"Table", "Columns"})
	for _, tbl := range tables {
		t.AppendRow(table.Row{tbl.Name, strings.Join(tbl.Columns, listSeparator)})
	}
	r.render(t)
}

func (r *Renderer) groupsTable(groups []inventory.Group) {
	if len(groups) == 0 {
		r.line("(0 groups)")
		return
	}
	t := r.newTable()
	t.AppendHeader(table.Row{"Similar Tables", "Shared Columns", "Score"})
	for _, g := range groups {
		t.AppendRow(table.Row{
			strings.Join(g.Members, listSeparator),
			strings.Join(g.SharedColumns, listSeparator),
			r.styles.score(g.Score),
		})
	}
	r.render(t)
}

func (r *Renderer) newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.w)
	t.SetStyle(table.StyleLight)
	return t
}

func (r *Renderer) render(t table.Writer) {
	if r.format == FormatMarkdown {
		t.RenderMarkdown()
		r.line("")
		return
	}
	t.Render()
}

func (r *Renderer) section(name string) {
	r.heading(r.title.String(name))
}

func (r *Renderer) heading(text string) {
	if r.format == FormatMarkdown {
		r.line("## " + text)
		r.line("")
		return
	}
	r.line(r.styles.heading(text))
}

func (r *Renderer) line(s string) {
	_, _ = fmt.Fprintln(r.w, s)
}

func runRow(run state.Run) []string {
	return []string{
		run.ID,
		run.CreatedAt.Local().Format(time.DateTime),
		run.Source,
		formatThreshold(run.Threshold),
		strconv.Itoa(run.Records),
		strconv.Itoa(run.TableCount),
		strconv.Itoa(run.GroupCount),
	}
}

func formatThreshold(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
