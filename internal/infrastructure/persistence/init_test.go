package persistence_test

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

func init() {
	// A .env at the repository root may point the integration tests at MySQL
	paths := []string{
		"../../../.env",
		"../../.env",
		".env",
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			if err := godotenv.Load(p); err == nil {
				log.Printf("📁 Loaded .env from %s for tests", p)
				return
			}
		}
	}
}
