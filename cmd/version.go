package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evoplatform/evogate/internal/build"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display the binary version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(build.Version)
		},
	}
}
