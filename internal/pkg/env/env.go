package env

import (
	"os"

	"github.com/joho/godotenv"
)

// Env holds the key/value pairs read from the .env file at startup.
var Env map[string]string

// GetEnv returns the value for key, preferring the .env file over the
// process environment. Containerized deployments set variables directly,
// so the OS lookup keeps them working without a file.
func GetEnv(key, def string) string {
	if val, ok := Env[key]; ok {
		return val
	}
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// SetupEnvFile loads the .env file. The path candidates cover running
// from the repo root, from cmd/facilo and cmd/migrate, and one level
// deeper for test binaries.
func SetupEnvFile() {
	candidates := []string{
		".env",
		"../../.env",
		"../../../.env",
	}

	var err error
	for _, path := range candidates {
		Env, err = godotenv.Read(path)
		if err == nil {
			return
		}
	}

	panic("env: no .env file found, copy .env.example and fill it in")
}

func IsDev() bool {
	return GetEnv("APP_ENV", "prod") == "dev"
}
