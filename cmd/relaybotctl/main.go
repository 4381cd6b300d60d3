package main

import (
	"os"

	"relaybot/src/cli"
)

func main() {
	os.Exit(cli.Execute())
}
