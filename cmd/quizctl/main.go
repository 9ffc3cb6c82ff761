package main

import "wiki-quiz/internal/cli"

func main() {
	cli.Execute()
}
