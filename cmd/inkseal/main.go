package main

import "github.com/jmcleod/inkseal/cmd/inkseal/cmd"

func main() {
	cmd.Execute()
}
