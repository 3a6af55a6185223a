package main

import "github.com/NVIDIA/vetter/pkg/cli"

func main() {
	cli.Execute()
}
