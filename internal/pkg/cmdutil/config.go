// Package cmdutil provides shared utilities for CLI command implementations.
package cmdutil

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// StringFlag returns the named flag when the user set it on cmd, else the
// config value for key.
func StringFlag(cmd *cobra.Command, name, key string) string {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	return viper.GetString(key)
}

// Float64Flag is StringFlag for floats.
func Float64Flag(cmd *cobra.Command, name, key string) float64 {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetFloat64(name)
		return v
	}
	return viper.GetFloat64(key)
}

// BindFlags binds each flag of fs named in keys to its config key, so the
// flag wins over the config file and the environment when set.
func BindFlags(fs *pflag.FlagSet, keys map[string]string) error {
	for name, key := range keys {
		flag := fs.Lookup(name)
		if flag == nil {
			return fmt.Errorf("no flag %q to bind to %s", name, key)
		}
		if err := viper.BindPFlag(key, flag); err != nil {
			return err
		}
	}
	return nil
}
