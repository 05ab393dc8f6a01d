package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/agenthands/lila/internal/cli"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
