package main

import (
	"github.com/plumgrid/pg-gateway/cmd"
	"github.com/plumgrid/pg-gateway/pkg/logger"
)

var version = "1.0.0"

func main() {
	if err := cmd.Execute(version); err != nil {
		logger.Fatalf("Error: %v", err)
	}
}
