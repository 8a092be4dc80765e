package main

import (
	"os"

	"ragsync/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
