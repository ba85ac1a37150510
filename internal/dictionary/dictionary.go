package dictionary

import (
	"bufio"
	"embed"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/segmentio/parquet-go"
	"golang.org/x/text/unicode/norm"
)

// Entry kinds understood by dictionary files.
const (
	KindFirstName = "first_name"
	KindSurname   = "surname"
	KindOrg       = "org"
)

// Entry is one dictionary record. The same shape is read from CSV and
// Parquet files and written by the dictc compiler.
type Entry struct {
	Kind  string `csv:"kind" parquet:"kind" json:"kind"`
	Value string `csv:"value" parquet:"value" json:"value"`
}

//go:embed data/first_names.txt data/surnames.txt data/organizations.txt
var embedded embed.FS

// Dictionary is an immutable, read-shared name/organization lookup built
// once at engine construction. Name lookups are case-insensitive;
// organization values keep their original casing for exact text search.
type Dictionary struct {
	firstNames map[string]struct{}
	surnames   map[string]struct{}
	orgSet     map[string]struct{}
	orgs       []string
}

func newDictionary() *Dictionary {
	return &Dictionary{
		firstNames: make(map[string]struct{}),
		surnames:   make(map[string]struct{}),
		orgSet:     make(map[string]struct{}),
	}
}

// Load builds a dictionary from the embedded defaults plus the given
// supplementary files, in order. Supported formats are .txt (one entry per
// line, optionally "kind:value"), .csv (kind,value) and .parquet. A path
// that cannot be read or has an unsupported extension is an error: a
// configured dictionary is a hard requirement, not a hint.
func Load(paths []string) (*Dictionary, error) {
	d := newDictionary()

	for name, kind := range map[string]string{
		"data/first_names.txt":   KindFirstName,
		"data/surnames.txt":      KindSurname,
		"data/organizations.txt": KindOrg,
	} {
		f, err := embedded.Open(name)
		if err != nil {
			return nil, fmt.Errorf("opening embedded dictionary %s: %w", name, err)
		}
		err = d.readLines(f, kind)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("reading embedded dictionary %s: %w", name, err)
		}
	}

	for _, path := range paths {
		if err := d.loadFile(path); err != nil {
			return nil, err
		}
	}

	sort.Strings(d.orgs)
	return d, nil
}

func (d *Dictionary) loadFile(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening dictionary %s: %w", path, err)
		}
		defer f.Close()
		return d.readLines(f, KindFirstName)
	case ".csv":
		return d.readCSV(path)
	case ".parquet":
		return d.readParquet(path)
	default:
		return fmt.Errorf("dictionary %s: unsupported extension %q", path, filepath.Ext(path))
	}
}

// readLines parses plain-text dictionaries: one entry per line, blank
// lines and #-comments skipped. A "kind:value" prefix overrides the
// default kind for that line.
func (d *Dictionary) readLines(r io.Reader, defaultKind string) error {
	scanner := bufio.NewScanner(r)
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
		d.add(kind, value)
	}
	return scanner.Err()
}

func (d *Dictionary) readCSV(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening dictionary %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 2
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading dictionary %s: %w", path, err)
		}
		if record[0] == "kind" {
			continue
		}
		d.add(record[0], record[1])
	}
	return nil
}

func (d *Dictionary) readParquet(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening dictionary %s: %w", path, err)
	}
	defer f.Close()

	reader := parquet.NewReader(f)
	defer reader.Close()

	for {
		var entry Entry
		err := reader.Read(&entry)
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading dictionary %s: %w", path, err)
		}
		d.add(entry.Kind, entry.Value)
	}
	return nil
}

func validKind(kind string) bool {
	return kind == KindFirstName || kind == KindSurname || kind == KindOrg
}

// add normalizes the value (NFC) and files it under its kind. Unknown
// kinds and empty values are dropped silently.
func (d *Dictionary) add(kind, value string) {
	value = norm.NFC.String(strings.TrimSpace(value))
	if value == "" {
		return
	}
	switch kind {
	case KindFirstName:
		d.firstNames[strings.ToLower(value)] = struct{}{}
	case KindSurname:
		d.surnames[strings.ToLower(value)] = struct{}{}
	case KindOrg:
		if _, seen := d.orgSet[value]; !seen {
			d.orgSet[value] = struct{}{}
			d.orgs = append(d.orgs, value)
		}
	}
}

// IsFirstName reports whether w is a known given name (case-insensitive).
func (d *Dictionary) IsFirstName(w string) bool {
	_, ok := d.firstNames[strings.ToLower(norm.NFC.String(w))]
	return ok
}

// IsSurname reports whether w is a known family name (case-insensitive).
func (d *Dictionary) IsSurname(w string) bool {
	_, ok := d.surnames[strings.ToLower(norm.NFC.String(w))]
	return ok
}

// Organizations returns the known organization names in sorted order.
func (d *Dictionary) Organizations() []string { return d.orgs }

// Len returns the total number of entries across all kinds.
func (d *Dictionary) Len() int {
	return len(d.firstNames) + len(d.surnames) + len(d.orgs)
}
