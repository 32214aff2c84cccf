package main

import "debstage/internal/cli"

func main() {
	cli.Execute()
}
