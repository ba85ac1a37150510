package main

import (
	"bufio"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/segmentio/parquet-go"
	"golang.org/x/text/unicode/norm"

	"github.com/cloakd/cloakd/internal/dictionary"
)

// dictc compiles plain word lists into the Parquet dictionary format
// consumed by the anonymization engine. Text and CSV inputs are merged,
// NFC-normalized, deduplicated and written as sorted (kind, value) rows.
func main() {
	var (
		output      = flag.String("output", "dictionary.parquet", "Output Parquet file")
		defaultKind = flag.String("kind", dictionary.KindFirstName, "Default entry kind for .txt inputs (first_name, surname, org)")
	)
	flag.Parse()

	inputs := flag.Args()
	if len(inputs) == 0 {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <input files...>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --kind surname --output surnames.parquet surnames.txt\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --output combined.parquet names.csv extra.txt\n", os.Args[0])
		os.Exit(1)
	}

	if !validKind(*defaultKind) {
		fmt.Fprintf(os.Stderr, "Unknown kind %q (want first_name, surname or org)\n", *defaultKind)
		os.Exit(1)
	}

	entries, err := collect(inputs, *defaultKind)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read inputs: %v\n", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "No entries found in the given inputs")
		os.Exit(1)
	}

	if err := write(*output, entries); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", *output, err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %d entries to %s\n", len(entries), *output)
}

func validKind(kind string) bool {
	return kind == dictionary.KindFirstName || kind == dictionary.KindSurname || kind == dictionary.KindOrg
}

// collect reads every input file and returns the deduplicated entries in
// sorted order. Sorting keeps the output stable across runs so compiled
// dictionaries diff cleanly.
func collect(inputs []string, defaultKind string) ([]dictionary.Entry, error) {
	seen := make(map[dictionary.Entry]struct{})

	for _, path := range inputs {
		var err error
		switch strings.ToLower(filepath.Ext(path)) {
		case ".txt":
			err = readText(path, defaultKind, seen)
		case ".csv":
			err = readCSV(path, seen)
		default:
			err = fmt.Errorf("unsupported extension %q", filepath.Ext(path))
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	entries := make([]dictionary.Entry, 0, len(seen))
	for entry := range seen {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Kind != entries[j].Kind {
			return entries[i].Kind < entries[j].Kind
		}
		return entries[i].Value < entries[j].Value
	})
	return entries, nil
}

// readText parses one-entry-per-line files. Blank lines and #-comments
// are skipped, and a "kind:value" prefix overrides the default kind.
func readText(path, defaultKind string, seen map[dictionary.Entry]struct{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		kind, value := defaultKind, line
		if idx := strings.Index(line, ":"); idx > 0 {
			if k := strings.TrimSpace(line[:idx]); validKind(k) {
				kind = k
				value = strings.TrimSpace(line[idx+1:])
			}
		}
		addEntry(seen, kind, value)
	}
	return scanner.Err()
}

func readCSV(path string, seen map[dictionary.Entry]struct{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 2
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if record[0] == "kind" {
			continue
		}
		if !validKind(record[0]) {
			return fmt.Errorf("unknown kind %q", record[0])
		}
		addEntry(seen, record[0], record[1])
	}
}

func addEntry(seen map[dictionary.Entry]struct{}, kind, value string) {
	value = norm.NFC.String(strings.TrimSpace(value))
	if value == "" {
		return
	}
	seen[dictionary.Entry{Kind: kind, Value: value}] = struct{}{}
}

func write(path string, entries []dictionary.Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	writer := parquet.NewWriter(f)
	for i := range entries {
		if err := writer.Write(&entries[i]); err != nil {
			f.Close()
			return err
		}
	}
	if err := writer.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
