// Package main is the entry point for the sessionctl CLI application.
// It keeps a signed-in session against an identity provider and hands out
// access tokens for authenticated requests.
package main

import (
	"sessionctl/cli/cmd"
)

func main() {
	cmd.Execute()
}
