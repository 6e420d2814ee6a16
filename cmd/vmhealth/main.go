package main

import (
	"context"
	"os"

	"vmhealth/internal/cli"
)

func main() {
	deps := cli.Deps{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	os.Exit(cli.Execute(context.Background(), deps, os.Args[1:]))
}
