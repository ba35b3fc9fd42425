package main

import "github.com/itz4blitz/mcpcheck/cmd"

func main() {
	cmd.Execute()
}
