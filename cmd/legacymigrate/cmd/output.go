package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/legacymigrate/internal/importer"
	"github.com/dbsmedya/legacymigrate/internal/tracker"
)

// outputWriter is used for printing output, can be overridden in tests
var outputWriter io.Writer = os.Stdout

// setOutputWriter sets the output writer (used for testing)
func setOutputWriter(w io.Writer) {
	outputWriter = w
}

// resetOutputWriter resets output to stdout (used for testing)
func resetOutputWriter() {
	outputWriter = os.Stdout
}

var (
	okStyle      = color.New(color.FgGreen, color.OpBold)
	warnStyle    = color.New(color.FgYellow)
	errorStyle   = color.New(color.FgRed, color.OpBold)
	headerStyle  = color.New(color.FgCyan, color.OpBold)
	dimStyle     = color.New(color.FgGray)
	sectionStyle = color.New(color.OpBold)
)

// printHeader prints a formatted header
func printHeader(format string, args ...any) {
	title := fmt.Sprintf(format, args...)
	width := runewidth.StringWidth(title) + 4
	fmt.Fprintln(outputWriter, headerStyle.Sprint(strings.Repeat("=", width)))
	fmt.Fprintf(outputWriter, "  %s\n", headerStyle.Sprint(title))
	fmt.Fprintln(outputWriter, headerStyle.Sprint(strings.Repeat("=", width)))
}

// printSection prints a section header
func printSection(title string) {
	fmt.Fprintf(outputWriter, "[%s]\n", sectionStyle.Sprint(title))
	fmt.Fprintln(outputWriter, strings.Repeat("-", runewidth.StringWidth(title)+2))
}

// table renders left-aligned columns. Widths are measured in terminal cells
// so translated names with wide characters still line up.
type table struct {
	header []string
	rows   [][]string
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) render(w io.Writer, indent string) {
	widths := make([]int, len(t.header))
	for i, h := range t.header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, r := range t.rows {
		for i := 0; i < len(r) && i < len(widths); i++ {
			if cw := runewidth.StringWidth(color.ClearCode(r[i])); cw > widths[i] {
				widths[i] = cw
			}
		}
	}
	line := func(cells []string) {
		var sb strings.Builder
		sb.WriteString(indent)
		for i, c := range cells {
			if i >= len(widths) {
				break
			}
			sb.WriteString(c)
			if i < len(cells)-1 {
				pad := widths[i] - runewidth.StringWidth(color.ClearCode(c))
				sb.WriteString(strings.Repeat(" ", pad+2))
			}
		}
		fmt.Fprintln(w, strings.TrimRight(sb.String(), " "))
	}
	line(t.header)
	sep := make([]string, len(widths))
	for i, wd := range widths {
		sep[i] = strings.Repeat("-", wd)
	}
	line(sep)
	for _, r := range t.rows {
		line(r)
	}
}

func statusLabel(ok bool) string {
	if ok {
		return okStyle.Sprint("OK")
	}
	return errorStyle.Sprint("FAILED")
}

// printRunResult prints the per-unit table and totals of a run.
func printRunResult(rr *importer.RunResult, errorLimit int) {
	fmt.Fprintln(outputWriter)
	printHeader("Migration Summary")
	fmt.Fprintln(outputWriter)

	t := &table{header: []string{"UNIT", "STATUS", "IMPORTED", "SKIPPED", "ERRORS", "WARNINGS", "DURATION"}}
	for _, r := range rr.Results {
		t.add(r.Unit, statusLabel(r.Success),
			fmt.Sprint(r.Imported), fmt.Sprint(r.Skipped),
			fmt.Sprint(len(r.Errors)), fmt.Sprint(len(r.Warnings)),
			r.Duration.Round(time.Millisecond).String())
	}
	t.render(outputWriter, "  ")

	for _, r := range rr.Results {
		if len(r.Errors) == 0 {
			continue
		}
		fmt.Fprintln(outputWriter)
		fmt.Fprintf(outputWriter, "  %s\n", errorStyle.Sprintf("%s errors:", r.Unit))
		for _, e := range r.FirstErrors(errorLimit) {
			fmt.Fprintf(outputWriter, "    - %s\n", e)
		}
		if hidden := len(r.Errors) - len(r.FirstErrors(errorLimit)); hidden > 0 {
			fmt.Fprintf(outputWriter, "    %s\n", dimStyle.Sprintf("... and %d more", hidden))
		}
	}

	imported, skipped, errs, warnings := rr.Totals()
	fmt.Fprintln(outputWriter)
	printSection("Totals")
	fmt.Fprintf(outputWriter, "  Imported: %d  Skipped: %d  Errors: %d  Warnings: %d\n",
		imported, skipped, errs, warnings)
	fmt.Fprintf(outputWriter, "  Duration: %s\n", rr.Duration.Round(time.Millisecond))
	if rr.Aborted != "" {
		fmt.Fprintf(outputWriter, "  %s\n", warnStyle.Sprintf("Stopped at unit %s", rr.Aborted))
	}
	fmt.Fprintf(outputWriter, "  Success:  %s\n", statusLabel(rr.Success))
}

// printTracked lists how many identities the run knows per category.
func printTracked(t *tracker.Tracker) {
	counts := t.CountByCategory()
	var parts []string
	for _, c := range tracker.Categories {
		if n := counts[c]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", c, n))
		}
	}
	if len(parts) == 0 {
		return
	}
	fmt.Fprintf(outputWriter, "  Tracked:  %s\n", strings.Join(parts, " "))
}

// unitFilters are the --only/--start-at/--stop-at flags shared by run and plan.
type unitFilters struct {
	only    []string
	startAt string
	stopAt  string
}

func (f *unitFilters) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.only, "only", nil,
		"Run only these units (comma separated)")
	cmd.Flags().StringVar(&f.startAt, "start-at", "",
		"Start at this unit; earlier output is read back from the target")
	cmd.Flags().StringVar(&f.stopAt, "stop-at", "",
		"Stop after this unit")
}
