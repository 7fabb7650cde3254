// Package show displays the effective configuration and the state of the
// line's files.
package show

import (
	"github.com/spf13/cobra"
)

// ShowCmd is the base show command for displaying information and diagnostics.
var ShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display configuration and file status",
	Long: `Display the effective configuration and the state of the record files.

Subcommands:
  config   - Display the effective configuration
  status   - Show list sizes, call log size and truncation schedule

Examples:
  jcblock show config          # Configuration as YAML
  jcblock show config --json   # Configuration as JSON
  jcblock show status          # Record file summary`,
	// No Run function - requires a subcommand
}

func init() {
	ShowCmd.AddCommand(configCmd)
	ShowCmd.AddCommand(statusCmd)
}
