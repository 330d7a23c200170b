package main

import "unidown/cmd"

func main() {
	cmd.Execute()
}
