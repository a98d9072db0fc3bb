// Package config provides viper-backed configuration for the sseconn CLI.
// The library itself takes a plain sseclient.Config; this package only
// layers flag and environment resolution on top for the commands.
package config

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// InitViper creates a *viper.Viper bound to the command's own flags, the
// root command's persistent flags, and the SSECONN_ environment prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (SSECONN_DEBUG, SSECONN_READ_TIMEOUT, etc.)
//  3. Flag defaults
func InitViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()

	v.SetEnvPrefix("SSECONN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	if err := v.BindPFlags(cmd.Root().PersistentFlags()); err != nil {
		return nil, err
	}

	return v, nil
}
