// Command mlmdctl is a thin smoke-test driver for the mlmd client library. It
// is not part of the library's tested surface; it exists so the store can be
// poked at from a shell.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
