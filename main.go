package main

import (
	"os"

	"github.com/distilkit/distil/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
