package main

import "github.com/wentf9/vtool/cmd"

func main() {
	cmd.Execute()
}
