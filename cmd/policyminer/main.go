// Command policyminer mines access policies from agent behavior logs.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/policyminer/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	err := cmd.Execute()
	if err == nil {
		return
	}

	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		// Flag and argument errors from cobra.
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCommandError)
	}
	if !exitErr.Reported {
		fmt.Fprintln(os.Stderr, "Error:", exitErr)
	}
	os.Exit(exitErr.Code)
}
