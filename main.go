package main

import "github.com/crank-build/crank/cmd"

func main() {
	cmd.Execute()
}
