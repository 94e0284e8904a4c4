package main

import "github.com/lepinkainen/demeter/cmd"

var execute = cmd.Execute

func main() {
	execute()
}
