package main

import (
	"os"

	"github.com/dk0164/TMS-MONITOR/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
