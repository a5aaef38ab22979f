// Command bootimg probes, unpacks, and packs Android-family boot images.
package main

import (
	"fmt"
	"os"

	"github.com/eunmann/bootimg/internal/cli"
)

func main() {
	if err := cli.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
