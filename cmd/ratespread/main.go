package main

import (
	"ratespread/internal/cli"
)

func main() {
	cli.Execute()
}
