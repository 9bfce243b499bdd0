// Command provekit verifies formal proofs with local theorem provers or a
// remote verification service.
package main

import (
	"os"
)

func main() {
	os.Exit(Execute())
}
