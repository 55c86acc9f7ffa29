package main

import (
	"github.com/andrescamacho/pharmasim-go/internal/adapters/cli"
)

func main() {
	cli.Execute()
}
