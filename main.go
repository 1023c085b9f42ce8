package main

import "github.com/frahmantamala/finsolve-gateway/cmd"

func main() {
	cmd.Execute()
}
