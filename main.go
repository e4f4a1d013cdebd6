package main

import (
	"os"

	"github.com/mealdesk/mealdesk/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
