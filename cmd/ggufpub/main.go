package main

import (
	"os"

	"ggufpub/internal/cli"
)

func main() { os.Exit(cli.Main()) }
