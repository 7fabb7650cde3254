package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xenogenesi/jcblock/cmd/check"
	"github.com/xenogenesi/jcblock/cmd/list"
	"github.com/xenogenesi/jcblock/cmd/run"
	"github.com/xenogenesi/jcblock/cmd/show"
	"github.com/xenogenesi/jcblock/cmd/tones"
	"github.com/xenogenesi/jcblock/cmd/truncate"
	"github.com/xenogenesi/jcblock/internal/pkg/cmdutil"
	"github.com/xenogenesi/jcblock/internal/pkg/config"
	"github.com/xenogenesi/jcblock/internal/pkg/logger"
	"github.com/xenogenesi/jcblock/internal/pkg/version"
)

var cfgFile string

// helpShown makes usage output exit with a failure status
var helpShown bool

var rootCmd = &cobra.Command{
	Use:   "jcblock",
	Short: "jcblock screens calls on a telephone line",
	Long: fmt.Sprintf(`jcblock %s - junk call blocker

Reads caller-ID from a modem, terminates calls listed in the blacklist and
lets unlisted callers be blacklisted with a key press on a nearby phone.`, version.GetShortVersion()),
	Version:       version.GetFullVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run.Execute(cmd.Context())
	},
}

// Execute runs the root command and exits non-zero on error or after help.
func Execute() {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	if err != nil || helpShown {
		os.Exit(1)
	}
}

func addSubCommandPalattes() {
	rootCmd.AddCommand(run.RunCmd)
	rootCmd.AddCommand(check.CheckCmd)
	rootCmd.AddCommand(list.ListCmd)
	rootCmd.AddCommand(tones.TonesCmd)
	rootCmd.AddCommand(truncate.TruncateCmd)
	rootCmd.AddCommand(show.ShowCmd)
	rootCmd.AddCommand(versionCmd)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Initialize structured logging
	logger.Initialize()

	addSubCommandPalattes()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.jcblock.yaml)")
	rootCmd.PersistentFlags().StringP("port", "p", "", "modem serial port (default /dev/ttyS0)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text or json")
	cobra.CheckErr(cmdutil.BindFlags(rootCmd.PersistentFlags(), map[string]string{
		"port":       "modem.port",
		"log-level":  "log.level",
		"log-format": "log.format",
	}))

	defaultHelp := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		helpShown = true
		defaultHelp(cmd, args)
	})
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".jcblock")
	}

	viper.SetEnvPrefix("JCBLOCK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		cobra.CheckErr(err)
	}

	cfg := config.GetConfig()
	if err := logger.Configure(cfg.Log.Level, cfg.Log.Format, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "Invalid logging configuration:", err)
	}
}
