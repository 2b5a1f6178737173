// Command whis sanitises a security knowledge base into a versioned vector
// index and answers analyst queries under evidence policies.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/whis/internal/adapters/driving/cli"
	"github.com/custodia-labs/whis/internal/logger"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cli.SetVersion(version)
	err := cli.Execute(ctx)

	stop()
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
