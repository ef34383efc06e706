package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"go.lsp.dev/jsonrpc2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mcglsl/mcglsl-ls/internal/lsp"
)

var (
	// Version information - set during build
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// stdio is the transport: requests in on stdin, replies out on stdout.
// Logging stays on stderr so it cannot corrupt the protocol stream.
type stdio struct{}

func (stdio) Read(p []byte) (n int, err error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (n int, err error) { return os.Stdout.Write(p) }
func (stdio) Close() error {
	return multierr.Append(os.Stdin.Close(), os.Stdout.Close())
}

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("mcglsl-ls %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		return
	}

	logLevel := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	logger, err := buildLogger(logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mcglsl-ls: building logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	server, err := lsp.NewServer(logger, logLevel)
	if err != nil {
		logger.Fatal("starting server", zap.Error(err))
	}

	var rw io.ReadWriteCloser = stdio{}
	stream := jsonrpc2.NewStream(rw)
	conn := jsonrpc2.NewConn(stream)

	// The connection doubles as the channel for server-initiated messages.
	server.SetConnection(conn)

	go conn.Go(context.Background(), server.Handler())
	<-conn.Done()
}

// buildLogger writes human-readable lines to stderr. The level is shared
// with the server so the logLevel setting can retune it at runtime.
func buildLogger(level zap.AtomicLevel) (*zap.Logger, error) {
	cfg := zap.Config{
		Level:            level,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return cfg.Build()
}
