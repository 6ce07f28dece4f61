package main

import (
	"github.com/archivindex/archivindex/cmd/archivindex/commands"
)

func main() {
	commands.Execute()
}
