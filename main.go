package main

import (
	"fmt"
	"os"

	"research_probe/presentation/terminal"
)

func main() {
	termInterface, err := terminal.NewTerminalInterface()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}

	report, runErr := termInterface.Run()
	if err := termInterface.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close output log: %v\n", err)
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
	}
	os.Exit(report.ExitCode())
}
