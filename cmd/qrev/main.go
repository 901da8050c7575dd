package main

import (
	"os"

	"github.com/qreviewer/qrev/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
