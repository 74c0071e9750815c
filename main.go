package main

import "github.com/opendcs/odcsapi/cmd"

func main() {
	cmd.Execute()
}
