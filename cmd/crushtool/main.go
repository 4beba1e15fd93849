// Command crushtool decodes, encodes, verifies, and inspects binary CRUSH
// maps.
package main

import (
	"fmt"
	"os"

	"github.com/eunmann/crushtool/internal/cli"
)

func main() {
	if err := cli.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
