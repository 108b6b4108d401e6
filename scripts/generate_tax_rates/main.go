package main

import (
	"compress/gzip"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
)

// Writes sample jurisdiction tables for local runs.
// eu-standard.gz carries standard VAT rates, eu-reduced-overrides.gz replaces
// a few of them. Load both with TAX_RATE_FILES in that order so the
// overrides win.
func main() {
	dataDir := flag.String("dir", "data/tax-rates", "output directory")
	flag.Parse()

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	tables := map[string]map[string]string{
		"eu-standard.gz": {
			"NL": "0.21",
			"DE": "0.19",
			"BE": "0.21",
			"FR": "0.20",
			"LU": "0.17",
			"IE": "0.23",
		},
		"eu-reduced-overrides.gz": {
			"LU": "0.16",
			"NL-BQ": "0.08",
		},
	}

	for filename, rates := range tables {
		filePath := filepath.Join(*dataDir, filename)

		if err := writeTable(filePath, rates); err != nil {
			log.Fatalf("Failed to create %s: %v", filename, err)
		}

		fmt.Printf("Created %s with %d jurisdictions\n", filePath, len(rates))
	}

	fmt.Printf("\nTAX_RATE_FILES=%s,%s\n",
		filepath.Join(*dataDir, "eu-standard.gz"),
		filepath.Join(*dataDir, "eu-reduced-overrides.gz"))
}

func writeTable(filePath string, rates map[string]string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	codes := make([]string, 0, len(rates))
	for code := range rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	if _, err := fmt.Fprintln(gzipWriter, "# jurisdiction,rate"); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, code := range codes {
		if _, err := fmt.Fprintf(gzipWriter, "%s,%s\n", code, rates[code]); err != nil {
			return fmt.Errorf("failed to write rate: %w", err)
		}
	}

	return nil
}
