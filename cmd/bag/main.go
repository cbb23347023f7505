package main

import "github.com/aweris/bag/cmd/bag/cmd"

func main() {
	cmd.Execute()
}
