package main

import (
	"os"

	"github.com/luisromp/personarag/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
