package main

import (
	"github.com/sidkik/fikasync/cmd"
	"github.com/sidkik/fikasync/cmd/util"
)

func main() {
	defer util.HandlePanic()
	cmd.Execute()
}
