package main

import (
	"log"
	"os"

	"github.com/TFMV/fwait/cmd"
	fwait "github.com/TFMV/fwait/internal/wait"
)

func main() {
	// Configure logger for detailed output.
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Set up a deferred function to recover from panics.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v", r)
			os.Exit(fwait.ExitInternal)
		}
	}()

	if err := cmd.Execute(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(fwait.ExitCode(err))
	}
}
