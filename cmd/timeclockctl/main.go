package main

import (
	"os"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/BrandonDHaskell/timeclock/internal/cli"
)

func main() {
	_ = godotenv.Load()

	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
