package main

import "github.com/derickschaefer/sellerscope/cmd"

func main() {
	cmd.Execute()
}
