package main

import (
	"os"

	"github.com/jhoicas/stoir-api/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
