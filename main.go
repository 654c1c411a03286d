package main

import "github.com/chriserin/b2b/cmd"

func main() {
	cmd.Execute()
}
