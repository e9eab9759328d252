package main

import (
	"log"
	"os"

	"github.com/pcbforge/kicad-mcp/internal/cli"
)

func main() {
	// stdout 是協定通道，所有日誌一律走 stderr
	log.SetOutput(os.Stderr)
	log.SetPrefix("[kicad-mcp] ")
	if err := cli.BuildCLI().Execute(); err != nil {
		log.Printf("error: %v", err)
		os.Exit(1)
	}
}
