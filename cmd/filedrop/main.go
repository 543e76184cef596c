package main

import "github.com/CaioWing/filedrop/cmd/filedrop/cmd"

func main() {
	cmd.Execute()
}
