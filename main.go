package main

import "github.com/KeikaK/llmbroadhearing/internal/cmd"

func main() {
	cmd.Execute()
}
