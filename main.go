package main

import "github.com/kstack-dev/kstack/cmd"

func main() {
	cmd.Execute()
}
