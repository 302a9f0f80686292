// Command sensord polls a serial sensor, keeps a bounded in-memory history of
// its readings and serves that history as JSON over HTTP.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
