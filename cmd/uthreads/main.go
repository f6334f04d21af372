// Command uthreads runs a demo workload on the green thread scheduler.
package main

import (
	"fmt"
	"os"
)

func main() {
	app := newApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// exitProcess is swapped out by tests.
var exitProcess = os.Exit
