package main

import "imgfit/cmd"

func main() {
	cmd.Execute()
}
