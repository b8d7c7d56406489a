package main

import "donation-nodes/cmd"

func main() {
	cmd.Execute()
}
