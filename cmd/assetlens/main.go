package main

import "github.com/GeorgeMcIntyre-Web/AssetLens/cmd/assetlens/commands"

func main() {
	commands.Execute()
}
