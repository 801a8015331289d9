package main

import "trustschema/cmd"

func main() {
	cmd.Execute()
}
