// Command formsync fills and synchronises survey forms against an answers
// endpoint, and can run the reference endpoint itself.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(newApp(os.Stdout)).Execute(); err != nil {
		os.Exit(1)
	}
}
