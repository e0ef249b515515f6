package main

import "github.com/anirudhraja/accelite/internal/cli"

func main() {
	cli.Execute()
}
