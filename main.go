package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/lepostier/lepostier/cmd"
)

func main() {
	// Development reads .env; production sets the variables directly.
	if os.Getenv("LEPOSTIER_ENV") != "production" {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			log.Printf("lepostier: reading .env: %v", err)
		}
	}

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
