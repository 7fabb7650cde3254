package show

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/xenogenesi/jcblock/internal/pkg/config"
	"github.com/xenogenesi/jcblock/internal/pkg/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display the effective configuration",
	Long:  `Show the configuration after defaults, the config file, JCBLOCK_ environment variables and flags are merged.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		format := output.FormatYAML
		if jsonOutput {
			format = output.FormatJSON
		}
		return output.Write(os.Stdout, config.GetConfig(), format)
	},
}

func init() {
	configCmd.Flags().Bool("json", false, "Output in JSON format")
}
