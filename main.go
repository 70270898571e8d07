package main

import (
	"github.com/tphakala/rainforest-sed/cmd"
	"github.com/tphakala/rainforest-sed/internal/logging"
)

func main() {
	if err := cmd.RootCommand().Execute(); err != nil {
		logging.Fatal("command failed", "error", err)
	}
}
