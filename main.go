// The main package for the baseline-analyzer executable.
package main

import (
	"github.com/JakeFAU/baseline-analyzer/cmd"
)

func main() {
	cmd.Execute()
}
