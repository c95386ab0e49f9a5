package main

import (
	"github.com/agrione/offline-sync/pkg/root"

	_ "github.com/agrione/offline-sync/pkg/console" // Register commands
)

func main() {
	root.Execute()
}
