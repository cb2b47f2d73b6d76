// Package cmd contains all the commands included in the rxn3d binary.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCommand enables all children commands to read flags from CLI flags,
// environment variables prefixed with RXN3D, or config.yaml (in that order).
func NewRootCommand() *cobra.Command {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("RXN3D")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	configPaths := []string{"/etc/rxn3d", "$HOME/.rxn3d", "."}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}
	_ = viper.ReadInConfig()

	return &cobra.Command{
		Use:   "rxn3d",
		Short: "Configuration-resolution core for the rxn3d case customization workflow",
		Long: `Configuration-resolution core for the rxn3d case customization workflow.

Resolves free-form shade selections against a two-level brand/variant catalog,
keeps dual-arch configuration records synchronized, and memoizes delivery-date
estimates.`,
	}
}
