package main

import "github.com/musafirlabs/wahapipe/cmd"

func main() {
	cmd.Execute()
}
