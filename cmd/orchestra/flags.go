package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	streamyerrors "github.com/jsprague/orchestra/pkg/errors"
)

func validateRunOptions(opts runOptions) error {
	if strings.TrimSpace(opts.InputPath) == "" {
		return streamyerrors.NewUsageError("input path is required (-i/--input)")
	}

	abs, err := filepath.Abs(opts.InputPath)
	if err != nil {
		return streamyerrors.NewUsageError(fmt.Sprintf("resolve input path: %v", err))
	}
	info, err := os.Stat(abs)
	if err != nil {
		return streamyerrors.NewUsageError(fmt.Sprintf("input file does not exist: %v", err))
	}
	if info.IsDir() {
		return streamyerrors.NewUsageError(fmt.Sprintf("input path %s is a directory", abs))
	}

	if opts.Workers <= 0 {
		return streamyerrors.NewUsageError("max-processes must be >= 1")
	}
	if opts.MaxPolls <= 0 {
		return streamyerrors.NewUsageError("n-times-before-timeout must be >= 1")
	}
	if opts.FromSerial < 0 {
		return streamyerrors.NewUsageError("from-serial must be >= 0")
	}

	return nil
}
