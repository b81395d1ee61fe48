// README: Entry point; hands control to the cobra command tree.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
