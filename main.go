package main

import "vpngatebot/cmd"

func main() {
	cmd.Execute()
}
