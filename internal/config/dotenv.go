package config

import (
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads the optional env files a developer keeps next to the
// binary. Values already present in the process environment are never
// overwritten, so deployment configuration always wins, and .env.local wins
// over the shared .env. Returns the files that were actually loaded.
func LoadDotEnv() []string {
	var loaded []string
	for _, name := range []string{".env.local", ".env"} {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err == nil {
			loaded = append(loaded, name)
		}
	}
	return loaded
}
