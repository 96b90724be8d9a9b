// Command journal manages science journal experiments on disk.
package main

import "github.com/mesh-intelligence/journal/internal/cli"

func main() {
	cli.Execute()
}
