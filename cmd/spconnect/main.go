package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"spconnect/interfaces/cli"
)

// version is set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	loadEnvironment()

	root := cli.NewApp(version).NewRootCommand()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadEnvironment reads .env when present. Messages go to stderr, stdout
// carries command output and the MCP channel.
func loadEnvironment() {
	if err := godotenv.Load(); err != nil {
		println("No .env file found, using environment variables")
	}
}
