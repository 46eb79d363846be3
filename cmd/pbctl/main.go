// Command pbctl manages pagebuilder contents from the shell, against the
// storage configured in the environment.
package main

import (
	"os"

	"github.com/gogotex/pagebuilder/pkg/logger"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
