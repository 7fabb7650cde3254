package main

import "github.com/xenogenesi/jcblock/cmd"

func main() {
	cmd.Execute()
}
