// Command dataclean cleans a tabular file through the standard cleaning
// stages and writes the result, a JSON report, and optionally a database
// table.
//
//	dataclean clean --config configs/jobs/sample.yaml -v
//	dataclean clean --input data/patients.csv --out-dir out
//	dataclean validate --config configs/jobs/sample.yaml
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
