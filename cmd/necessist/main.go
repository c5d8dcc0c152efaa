// Command necessist audits a test suite by removing candidate spans of
// source one at a time, rerunning the affected tests, and reporting every
// removal the suite failed to catch.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "necessist:", err)
		os.Exit(1)
	}
}
