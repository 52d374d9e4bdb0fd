package main

import (
	"fmt"
	"os"

	"github.com/bigsql/pgadmin4/internal/cli"
	"github.com/bigsql/pgadmin4/internal/cli/helpers"
)

func main() {
	if err := cli.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(helpers.ExitCode(err))
	}
}
