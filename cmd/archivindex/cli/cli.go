package cli

import (
	"log"
	"os"
)

// Stdout carries command output (digest listings, query rows, reports).
// Stderr carries diagnostics. Log lines from subsystems also go to stderr.
var (
	Stderr = log.New(os.Stderr, "", 0)
	Stdout = log.New(os.Stdout, "", 0)
)

// Exit terminates the process, printing err and exiting non-zero when set.
func Exit(err error) {
	if err != nil {
		Stderr.Println(err)
		os.Exit(1)
	}
	os.Exit(0)
}
