package main

import "courserag/cmd"

func main() {
	cmd.Execute()
}
