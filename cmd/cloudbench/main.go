package main

import (
	"os"

	_ "github.com/cloudbench-project/cloudbench/pkg/install/imagetest"
	_ "github.com/cloudbench-project/cloudbench/pkg/install/launcher"
	_ "github.com/cloudbench-project/cloudbench/pkg/logger"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
