package main

import "github.com/robinyoon-dev/repo-spect/cmd"

func main() {
	cmd.Execute()
}
