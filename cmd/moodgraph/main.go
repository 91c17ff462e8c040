package main

import "github.com/ewilliams-labs/moodgraph/internal/cli"

func main() {
	cli.Execute()
}
