package main

import "github.com/MrEthical07/goToken/internal/cli"

func main() {
	cli.Execute()
}
