// Command otpctl is the trusted console for an otpdeck device. It edits the
// authoritative configuration directly, without staging.
package main

import (
	"os"
)

func main() {
	a := newApp()
	err := newRootCmd(a).Execute()
	a.close()
	if err != nil {
		os.Exit(1)
	}
}
