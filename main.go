package main

import "github.com/Digni/winterm/cmd"

func main() {
	cmd.Execute()
}
