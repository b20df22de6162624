// Command searchctl is the operator CLI for the notes search backend.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
