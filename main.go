package main

import "github.com/Mohsinsiddi/dustvault/cmd"

func main() {
	cmd.Execute()
}
