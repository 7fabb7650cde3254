// Package truncate runs the record truncation job by hand.
package truncate

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/xenogenesi/jcblock/internal/pkg/config"
	"github.com/xenogenesi/jcblock/internal/pkg/output"
)

var TruncateCmd = &cobra.Command{
	Use:   "truncate",
	Short: "Remove old call log lines and stale blacklist entries",
	Long: `Remove call log lines and blacklist entries whose date is older than
truncate.max_age. Without --force nothing happens unless truncate.interval
has passed since the last run, the same rule the appliance applies after
every terminated call.`,
	RunE: runTruncate,
}

var (
	force      bool
	jsonOutput bool
)

func init() {
	TruncateCmd.Flags().BoolVarP(&force, "force", "f", false, "run even if the interval has not elapsed")
	TruncateCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
}

// Report is the outcome of one run.
type Report struct {
	Skipped          bool `json:"skipped" yaml:"skipped"`
	CallLogRemoved   int  `json:"calllog_removed" yaml:"calllog_removed"`
	BlacklistRemoved int  `json:"blacklist_removed" yaml:"blacklist_removed"`
}

func runTruncate(cmd *cobra.Command, args []string) error {
	svc, err := config.GetConfig().Truncation()
	if err != nil {
		return err
	}
	res, err := svc.RunOnce(force)
	if err != nil {
		return err
	}
	report := Report(res)
	if jsonOutput {
		return output.Write(os.Stdout, report, output.FormatJSON)
	}
	Render(os.Stdout, report)
	return nil
}

// Render prints the report.
func Render(w io.Writer, r Report) {
	if r.Skipped {
		fmt.Fprintln(w, output.DimStyle.Render("Not due yet, use --force to run anyway"))
		return
	}
	fmt.Fprintf(w, "Removed %d call log line(s) and %d blacklist entr(ies)\n", r.CallLogRemoved, r.BlacklistRemoved)
}
