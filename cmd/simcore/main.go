package main

import (
	"os"

	"github.com/rustyeddy/simcore/cmd/simcore/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
