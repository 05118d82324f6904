package cmd

import (
	"github.com/spf13/cobra"

	"github.com/evoplatform/evogate/internal/build"
)

var (
	// cfgFile is the config file path given with --config.
	cfgFile string

	// rootCmd represents the base command when called without any subcommands.
	rootCmd = &cobra.Command{
		Use:   build.Slug,
		Short: "Navigation gateway for the EVO Platform console.",
		Long: `Evogate fronts the EVO Platform console and gates every request on
session, license, cloud-account, and demo-mode state before the console
is allowed to render.`,
	}
)

// Execute adds all child commands to the root command and runs it. Called
// by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "",
		"config file (default is $XDG_CONFIG_HOME/evogate/config.yaml)",
	)

	rootCmd.AddCommand(serverCmd())
	rootCmd.AddCommand(versionCmd())
}
