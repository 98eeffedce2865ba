// Command storediag exercises the store-backed collections against one
// backend and prints a JSON report.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
)

func main() {
	var (
		backend  = flag.String("backend", "heap", "Store backend: heap, bump, shared or single")
		threads  = flag.Int("threads", 4, "Goroutines pushing into the vector")
		elements = flag.Int("elements", 1000, "Values pushed by each goroutine")
		keys     = flag.Int("keys", 1000, "Keys inserted into the skip list")
		seed     = flag.Uint64("seed", 1, "Seed of the key generator and skip list levels")
		verbose  = flag.Bool("verbose", false, "Enable debug logging to stderr")
		dump     = flag.Bool("dump", false, "Dump the first collection entries to stderr")
	)
	flag.Parse()

	if *threads <= 0 || *elements < 0 || *keys < 0 {
		fmt.Fprintln(os.Stderr, "Usage: storediag [-backend heap|bump|shared|single] [-threads n] [-elements n] [-keys n]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := config{
		threads:  *threads,
		elements: *elements,
		keys:     *keys,
		seed:     *seed,
		dump:     *dump,
		logger:   logger,
	}

	rep, err := runBackend(*backend, cfg)
	if err != nil {
		log.Fatalf("Diagnostic run failed: %v", err)
	}

	out, err := rep.render()
	if err != nil {
		log.Fatalf("Failed to render report: %v", err)
	}
	os.Stdout.Write(out)
}
