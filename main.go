package main

import "dstools/cmd"

func main() {
	cmd.Execute()
}
