// csvingest parses CSV files and loads them as datasets from the command
// line, using the same configuration as the server.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/csvdatasets/internal/cli"
)

func main() {
	// A missing .env is fine; real environment variables take precedence.
	_ = godotenv.Load()
	os.Exit(cli.Execute())
}
