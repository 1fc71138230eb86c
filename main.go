// Package main is the entry point for the nessie CLI.
package main

import "nessie.dev/pkg/nessie/cmd"

func main() {
	cmd.Execute()
}
