package main

import "github.com/scmmishra/clickboard/internal/cli"

func main() {
	cli.Execute()
}
