package main

import "wallsync/cmd/agent/cmd"

func main() {
	cmd.Execute()
}
