package main

import (
	"os"

	"github.com/evoplatform/evogate/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
