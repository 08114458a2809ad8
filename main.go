package main

import (
	"os"

	"github.com/Energma/tazz-cli/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
