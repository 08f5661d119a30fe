package main

import "github.com/scour-dl/scour/cmd"

func main() {
	cmd.Execute()
}
