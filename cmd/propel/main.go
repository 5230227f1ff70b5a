package main

import (
	"os"

	"github.com/valory-xyz/propel-client-go/cmd/cli"
)

func main() {
	os.Exit(cli.Execute())
}
