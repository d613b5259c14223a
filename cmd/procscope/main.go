package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/voluzi/procscope/cmd/procscope/cmd"
)

func main() {
	cmd.Execute()
}
