package main

import (
	"os"

	"github.com/drewdunne/codecritic/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
