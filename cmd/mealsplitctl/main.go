package main

import (
	"fmt"
	"os"

	"github.com/mmynk/mealsplit/cmd/mealsplitctl/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
