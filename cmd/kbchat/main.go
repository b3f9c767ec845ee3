package main

import "kbchat/internal/cli"

func main() {
	cli.Execute()
}
