package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sstent/tracksync-go/internal/config"
	"github.com/sstent/tracksync-go/internal/export"
	"github.com/sstent/tracksync-go/internal/parser"
)

func main() {
	var (
		inPath      = flag.String("in", "", "Path to a Suunto JSON, FIT or GPX export")
		parquetPath = flag.String("parquet", "", "Write the points of the first activity to this Parquet file")
		eventID     = flag.String("event-id", "", "Event id to use instead of a random UUID")
		quiet       = flag.Bool("quiet", false, "Do not list skipped samples")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s --in export.json [--parquet points.parquet] [--event-id id]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if strings.TrimSpace(*inPath) == "" {
		flag.Usage()
		os.Exit(2)
	}

	raw, err := os.ReadFile(*inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "trackimport failed: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Load()
	p, err := parser.NewParserForFile(*inPath, raw,
		parser.WithEventID(*eventID),
		parser.WithIBIPipeline(cfg.IBIPipeline()),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "trackimport failed: %v\n", err)
		os.Exit(1)
	}

	result, err := p.ParseData(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "trackimport failed: %v\n", err)
		os.Exit(1)
	}

	if !*quiet {
		for _, s := range result.Skipped {
			fmt.Fprintf(os.Stderr, "skipped: %v\n", s)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result.Event); err != nil {
		fmt.Fprintf(os.Stderr, "trackimport failed: %v\n", err)
		os.Exit(1)
	}

	if *parquetPath != "" {
		a := result.Event.FirstActivity()
		if a == nil {
			fmt.Fprintln(os.Stderr, "trackimport failed: event has no activity")
			os.Exit(1)
		}
		if err := export.WritePointsParquet(*parquetPath, a); err != nil {
			fmt.Fprintf(os.Stderr, "trackimport failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "points written to %s\n", *parquetPath)
	}
}
