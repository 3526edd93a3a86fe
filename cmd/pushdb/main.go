// Command pushdb inspects and edits pushdb databases stored in Bolt files or
// LevelDB directories.
package main

import (
	"os"
)

func main() {
	err := rootCmd.Execute()
	if cerr := closeCommandDB(rootCmd, nil); err == nil {
		err = cerr
	}
	if err != nil {
		os.Exit(1)
	}
}
