// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/onyxware/bao/cmd/bao"

func main() {
	cmd.Execute()
}
