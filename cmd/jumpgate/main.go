package main

import "github.com/MrSnakeDoc/jumpgate/cmd/jumpgate/cmd"

func main() {
	cmd.Execute()
}
