package main

import "github.com/Alturino/catalog/cmd"

func main() {
	cmd.Start()
}
