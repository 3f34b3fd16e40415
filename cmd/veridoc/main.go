package main

import "github.com/veridoc-io/veridoc/cmd/veridoc/cmd"

func main() {
	cmd.Execute()
}
