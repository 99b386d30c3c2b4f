package main

import "bidstorm/cmd"

func main() {
	cmd.Execute()
}
