package main

import (
	"fmt"
	"os"

	"github.com/awnumar/memguard"
	"github.com/fatih/color"
)

func main() {
	memguard.CatchInterrupt()
	defer memguard.Purge()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("[error] ")+userMessage(err))
		memguard.SafeExit(1)
	}
}
