package main

import (
	"os"

	"github.com/abhisek/brigade/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
