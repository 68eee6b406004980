package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/RobokopU24/babel-filter/pkg/babel"
)

// OutputOptions configures CLI output behavior.
type OutputOptions struct {
	Verbose bool
	Quiet   bool
}

type summaryStyles struct {
	ok, fail, label, faint lipgloss.Style
}

func newSummaryStyles(w io.Writer) summaryStyles {
	r := lipgloss.NewRenderer(w)
	return summaryStyles{
		ok:    r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		fail:  r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		label: r.NewStyle().Bold(true),
		faint: r.NewStyle().Faint(true),
	}
}

// PrintExecutionResult displays the run summary. Failures go to errW and
// the summary of a successful run goes to w.
func PrintExecutionResult(w, errW io.Writer, result *babel.ExecutionResult, err error, opts OutputOptions) {
	if result == nil {
		fmt.Fprintln(errW, newSummaryStyles(errW).fail.Render("✗ No execution result available"))
		return
	}

	if err != nil {
		s := newSummaryStyles(errW)
		fmt.Fprintln(errW, s.fail.Render("✗ Filter run failed"))
		if result.Error != nil {
			if result.Error.Stage != "" {
				fmt.Fprintf(errW, "  Stage: %s\n", result.Error.Stage)
			}
			fmt.Fprintf(errW, "  Code: %s\n", result.Error.Code)
			fmt.Fprintf(errW, "  Error: %s\n", result.Error.Message)
		}
		return
	}

	if opts.Quiet {
		return
	}

	s := newSummaryStyles(w)
	fmt.Fprintln(w, s.ok.Render("✓ Filter run completed"))
	fmt.Fprintf(w, "  %s %s\n", s.label.Render("Run:"), result.RunID)
	if result.Index != nil {
		fmt.Fprintf(w, "  %s %s identifiers (%s excluded, %s skipped)\n",
			s.label.Render("Index:"),
			humanize.Comma(int64(result.Index.Indexed)),
			humanize.Comma(result.Index.Excluded),
			humanize.Comma(result.Index.Skipped),
		)
	}
	fmt.Fprintf(w, "  %s %s of %s lines kept in %d files\n",
		s.label.Render("Filtered:"),
		humanize.Comma(result.LinesKept),
		humanize.Comma(result.LinesRead),
		len(result.Files),
	)
	if result.Residual != nil {
		fmt.Fprintf(w, "  %s %s records to %s\n",
			s.label.Render("Residual:"),
			humanize.Comma(result.Residual.Written),
			result.Residual.Path,
		)
	}

	if opts.Verbose {
		printFileTable(w, s, result.Files)
		fmt.Fprintf(w, "  %s %v\n", s.label.Render("Duration:"), result.Duration().Round(time.Millisecond))
	}
}

// printFileTable lists per-file counts, largest output first.
func printFileTable(w io.Writer, s summaryStyles, files []babel.FileResult) {
	if len(files) == 0 {
		return
	}
	rows := make([]babel.FileResult, len(files))
	copy(rows, files)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Kept > rows[j].Kept })

	fmt.Fprintln(w, "  "+s.label.Render("Files:"))
	for _, f := range rows {
		size := ""
		if info, err := os.Stat(f.Output); err == nil {
			size = " " + s.faint.Render(humanize.Bytes(uint64(info.Size())))
		}
		fmt.Fprintf(w, "    %s  %s/%s%s\n",
			filepath.Base(f.Output),
			humanize.Comma(f.Kept),
			humanize.Comma(f.Lines),
			size,
		)
	}
}

// PrintConfigSummary prints the run settings found in a job file.
func PrintConfigSummary(w io.Writer, data map[string]interface{}) {
	if data == nil {
		return
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %v\n", k, data[k])
	}
}
