package main

import (
	"os"

	"github.com/bianoble/pinit/cmd/pinit/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}
