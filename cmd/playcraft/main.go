// Command playcraft runs the PlayCraft backend and its developer tools.
//
// Usage:
//
//	playcraft serve
//	playcraft suggest --dir ./my-game --prompt "make the board bigger"
//	playcraft watch --dir ./my-game --project <id>
//	playcraft token --user alice
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
