package main

import "github.com/mvp-joe/logsift/internal/cli"

func main() {
	cli.Execute()
}
