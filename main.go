package main

import "github.com/stackgen-cli/compose-pilot/cmd"

func main() {
	cmd.Execute()
}
