package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	logginginfra "github.com/jsprague/orchestra/internal/infrastructure/logging"
	streamyerrors "github.com/jsprague/orchestra/pkg/errors"
)

func main() {
	level := "info"
	for _, arg := range os.Args[1:] {
		if arg == "-v" || arg == "--verbose" {
			level = "debug"
		}
	}

	appLogger, err := logginginfra.New(logginginfra.Options{
		Level:     level,
		Component: "cli",
		Layer:     "cli",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create application logger: %v\n", err)
		os.Exit(1)
	}

	correlationID := logginginfra.GenerateCorrelationID()
	ctx := logginginfra.WithCorrelationID(context.Background(), correlationID)

	app := &AppContext{Logger: appLogger}
	rootCmd := newRootCmd(app)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var usageErr *streamyerrors.UsageError
		if errors.As(err, &usageErr) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
