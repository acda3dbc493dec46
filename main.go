package main

import "github.com/clementinebot/clementine/cmd"

func main() {
	cmd.Execute()
}
