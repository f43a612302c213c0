package main

import (
	"os"

	"github.com/bianoble/blend/cmd/blend/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
