package main

import "github.com/yieldprotocol/principald/internal/cli"

func main() {
	cli.Execute()
}
