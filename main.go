// SPDX-License-Identifier: MPL-2.0

// Command metagen generates type descriptors from metadata markers.
package main

import cmd "github.com/invowk/metagen/cmd/metagen"

func main() {
	cmd.Execute()
}
