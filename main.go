// main.go
package main

import (
	"os"

	"github.com/gewnthar/bostondata/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
