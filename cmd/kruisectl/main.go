package main

import (
	"fmt"
	"os"

	"github.com/beastpu/kruise-proxy-mcp/biz/cli"
)

func main() {
	root := cli.NewRootCommand(cli.DefaultConfig())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
