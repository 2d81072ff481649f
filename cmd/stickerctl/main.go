package main

import (
	"os"

	"github.com/joho/godotenv"

	"stickerforge/internal/cli"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	if err := cli.BuildCLI().Execute(); err != nil {
		os.Exit(1)
	}
}
