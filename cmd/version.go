package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xenogenesi/jcblock/internal/pkg/output"
	"github.com/xenogenesi/jcblock/internal/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			return output.Write(os.Stdout, version.Get(), output.FormatJSON)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "jcblock", version.GetFullVersion())
		return nil
	},
}

func init() {
	versionCmd.Flags().Bool("json", false, "Output in JSON format")
}
