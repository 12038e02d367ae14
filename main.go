package main

import "github.com/itsmostafa/scriptbridge/cmd"

func main() {
	cmd.Execute()
}
