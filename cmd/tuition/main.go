// Command tuition keeps the tuition rate catalog in step with the registrar
// feed and answers rate queries against it.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/tuition/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
