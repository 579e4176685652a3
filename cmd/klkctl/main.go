// klkctl administers a klkchan data directory from the command line
package main

import (
	"os"

	"github.com/klkchan/klkchan/cmd/klkctl/commands"
)

var appVersion = "-unset-"

func main() {
	if err := commands.Execute(appVersion); err != nil {
		os.Exit(1)
	}
}
