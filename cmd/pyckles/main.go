package main

import (
	"github.com/kamusis/pyckles/cmd"

	_ "github.com/kamusis/pyckles/synphot"
)

func main() {
	cmd.Execute()
}
