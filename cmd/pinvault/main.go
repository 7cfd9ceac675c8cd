// Command pinvault manages a PIN-protected signing key from the terminal.
package main

import (
	"os"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

func main() {
	a := &app{}
	if err := execute(a, newRootCmd(a)); err != nil {
		os.Exit(1)
	}
}
