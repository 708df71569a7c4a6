package main

import (
	"fmt"
	"os"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/cmd/ledgerctl/cli"
)

func main() {
	if err := cli.NewRootCommand(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
