// Command genzones regenerates the embedded time zone tables in
// internal/region/data from a system tzdata installation.
//
// Usage:
//
//	go run ./cmd/genzones -zoneinfo /usr/share/zoneinfo -out internal/region/data
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const header = "# Generated by cmd/genzones from tzdata. DO NOT EDIT.\n"

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	zoneinfo := flag.String("zoneinfo", "/usr/share/zoneinfo", "tzdata directory containing zone.tab, iso3166.tab and tzdata.zi")
	out := flag.String("out", "internal/region/data", "output directory for the generated tables")
	flag.Parse()

	if *zoneinfo == "" || *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -zoneinfo, -out")
	}

	zones, err := readRecords(filepath.Join(*zoneinfo, "zone.tab"), 3)
	if err != nil {
		return fmt.Errorf("reading zone.tab: %w", err)
	}
	// zone.tab is grouped by country but not strictly sorted within the file.
	slices.SortStableFunc(zones, func(a, b []string) int { return strings.Compare(a[0], b[0]) })

	countries, err := readRecords(filepath.Join(*zoneinfo, "iso3166.tab"), 2)
	if err != nil {
		return fmt.Errorf("reading iso3166.tab: %w", err)
	}

	links, err := readLinks(filepath.Join(*zoneinfo, "tzdata.zi"))
	if err != nil {
		return fmt.Errorf("reading tzdata.zi: %w", err)
	}

	if err := os.MkdirAll(*out, 0o755); err != nil {
		return err
	}
	tables := []struct {
		name    string
		comment string
		records [][]string
	}{
		{"zone.tab", "", zones},
		{"iso3166.tab", "", countries},
		{"backward.tab", "# target\talias\n", links},
	}
	for _, tbl := range tables {
		path := filepath.Join(*out, tbl.name)
		if err := writeTable(path, tbl.comment, tbl.records); err != nil {
			return fmt.Errorf("writing %s: %w", tbl.name, err)
		}
		log.Printf("wrote %s: %d records", path, len(tbl.records))
	}
	return nil
}

// readRecords reads a tab-separated tzdata table, skipping comments and
// records with fewer than minFields fields.
func readRecords(path string, minFields int) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records [][]string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < minFields {
			continue
		}
		records = append(records, fields)
	}
	return records, scanner.Err()
}

// readLinks extracts "L target alias" lines from a compact tzdata.zi file,
// sorted by alias.
func readLinks(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var links [][]string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 3 || fields[0] != "L" {
			continue
		}
		links = append(links, []string{fields[1], fields[2]})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	slices.SortFunc(links, func(a, b []string) int { return strings.Compare(a[1], b[1]) })
	return links, nil
}

func writeTable(path, comment string, records [][]string) error {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString(comment)
	for _, r := range records {
		b.WriteString(strings.Join(r, "\t"))
		b.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(b.String()), 0o600)
}
