package main

import (
	"os"

	"github.com/netwatch-oss/triggerkit/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
