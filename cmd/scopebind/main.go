// # cmd/scopebind/main.go
package main

import (
	"os"
	"scopebind/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
