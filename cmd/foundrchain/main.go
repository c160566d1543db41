package main

import "foundrchain/cli"

func main() {
	cli.Execute()
}
