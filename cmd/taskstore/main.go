// Package main provides the taskstore CLI.
package main

import "github.com/mesh-intelligence/taskstore/internal/cli"

func main() {
	cli.Execute()
}
