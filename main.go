package main

import "github.com/cybershield/shieldscan/cmd"

var execCmd = cmd.Execute

func main() {
	execCmd()
}
