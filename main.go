// The main package for the shelfscope executable.
package main

import (
	"github.com/shelfscope/shelfscope/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
