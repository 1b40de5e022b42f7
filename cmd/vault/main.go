package main

import (
	"context"
	"os"

	"github.com/axiscapital/vault/internal/server/cli"
)

func main() {
	ctx := context.Background()
	os.Exit(cli.Execute(ctx))
}
