// Command featline parses text-format sparse feature files into hashed
// examples. Inputs may be local files, stdin, or s3:// and gs:// objects,
// optionally compressed.
package main

import (
	"fmt"
	"os"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
