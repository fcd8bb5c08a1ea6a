// Command tlskdf-module serves the built-in TLS PRF backend over stdin and
// stdout so the harness can drive it as an out-of-process module.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"acvp-tlskdf/kdftls"
	"acvp-tlskdf/modwrap"
	"acvp-tlskdf/prf"
	"acvp-tlskdf/shared"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tlskdf-module: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := shared.LoadConfig()
	if err != nil {
		return err
	}
	logger, err := shared.NewLoggerFromConfig("tlskdf-module", cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	var hashes []string
	for _, h := range prf.Hashes() {
		hashes = append(hashes, kdftls.HashName(h))
	}

	srv := &modwrap.Server{
		Backend: prf.New(),
		Hashes:  hashes,
		Logger:  logger.Logger,
	}

	logger.Info("Serving module requests", zap.Strings("hashes", hashes))

	errChan := make(chan error, 1)
	go func() { errChan <- srv.Serve(ctx, stdio{}) }()

	select {
	case err := <-errChan:
		if ctx.Err() != nil {
			return nil
		}
		return err
	case <-ctx.Done():
		// A read on stdin may not return after Close, so do not wait for Serve.
		logger.Info("Shutting down module")
		return nil
	}
}

// stdio joins the process's stdin and stdout into one stream.
type stdio struct{}

func (stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdio) Close() error                { return os.Stdin.Close() }
