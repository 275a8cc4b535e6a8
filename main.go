package main

import "github.com/pixperk/pixtracker/cmd"

func main() {
	cmd.Execute()
}
