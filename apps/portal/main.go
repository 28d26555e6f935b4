package main

import (
	"os"

	dig_container "github.com/trezcool/masomo-portal/apps/portal/di/dig"
	"github.com/trezcool/masomo-portal/core"
)

func main() {
	if err := newRootCmd(dig_container.New(core.NewConfig)).Execute(); err != nil {
		os.Exit(1)
	}
}
