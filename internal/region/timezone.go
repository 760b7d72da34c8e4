package region

import (
	"bufio"
	"bytes"
	"embed"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/couchcryptid/where/internal/domain"
)

//go:embed data/zone.tab data/iso3166.tab data/backward.tab
var tzdata embed.FS

// TimeZone is an IANA zone associated with a region.
type TimeZone struct {
	Name       string            `json:"name"`
	Region     string            `json:"region"`
	Coordinate domain.Coordinate `json:"coordinate"`
	Comment    string            `json:"comment,omitempty"`
}

type tzTables struct {
	zones    []TimeZone
	byName   map[string]int
	byRegion map[string][]int
	links    map[string]string
	names    map[string]string
}

var (
	loaded     *tzTables
	loadedOnce sync.Once
)

func tables() *tzTables {
	loadedOnce.Do(func() {
		t, err := parseTables()
		if err != nil {
			// The tables are embedded; failing to parse them is a build defect.
			panic(fmt.Sprintf("region: embedded tzdata: %v", err))
		}
		loaded = t
	})
	return loaded
}

func parseTables() (*tzTables, error) {
	t := &tzTables{
		byName:   make(map[string]int),
		byRegion: make(map[string][]int),
		links:    make(map[string]string),
		names:    make(map[string]string),
	}

	err := eachRecord("data/zone.tab", func(fields []string) error {
		if len(fields) < 3 {
			return fmt.Errorf("zone.tab: short record %q", strings.Join(fields, "\t"))
		}
		coord, err := parseISO6709(fields[1])
		if err != nil {
			return fmt.Errorf("zone.tab %s: %w", fields[2], err)
		}
		tz := TimeZone{Name: fields[2], Region: fields[0], Coordinate: coord}
		if len(fields) > 3 {
			tz.Comment = fields[3]
		}
		t.byName[tz.Name] = len(t.zones)
		t.byRegion[tz.Region] = append(t.byRegion[tz.Region], len(t.zones))
		t.zones = append(t.zones, tz)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachRecord("data/iso3166.tab", func(fields []string) error {
		if len(fields) >= 2 {
			t.names[fields[0]] = fields[1]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachRecord("data/backward.tab", func(fields []string) error {
		if len(fields) >= 2 {
			t.links[fields[1]] = fields[0]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func eachRecord(name string, fn func(fields []string) error) error {
	data, err := tzdata.ReadFile(name)
	if err != nil {
		return err
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := fn(strings.Split(line, "\t")); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// parseISO6709 parses the ±DDMM[SS]±DDDMM[SS] form used by zone.tab.
func parseISO6709(s string) (domain.Coordinate, error) {
	split := strings.IndexAny(s[1:], "+-") + 1
	if split <= 0 {
		return domain.Coordinate{}, fmt.Errorf("bad coordinate %q", s)
	}
	lat, err := parseDegrees(s[:split], 2)
	if err != nil {
		return domain.Coordinate{}, err
	}
	lon, err := parseDegrees(s[split:], 3)
	if err != nil {
		return domain.Coordinate{}, err
	}
	return domain.Coordinate{Lat: lat, Lon: lon}, nil
}

func parseDegrees(s string, degDigits int) (float64, error) {
	sign := 1.0
	if s[0] == '-' {
		sign = -1
	}
	digits := s[1:]
	if len(digits) != degDigits+2 && len(digits) != degDigits+4 {
		return 0, fmt.Errorf("bad coordinate component %q", s)
	}
	var parts [3]float64
	for i, width := range []int{degDigits, 2, 2} {
		if len(digits) == 0 {
			break
		}
		n, err := strconv.Atoi(digits[:width])
		if err != nil {
			return 0, fmt.Errorf("bad coordinate component %q: %w", s, err)
		}
		parts[i] = float64(n)
		digits = digits[width:]
	}
	return sign * (parts[0] + parts[1]/60 + parts[2]/3600), nil
}

// ForTimeZone returns the region associated with an IANA time zone,
// following backward-compatible aliases such as "US/Eastern". Zones with no
// country association (UTC, "Etc/GMT+3") report false.
func ForTimeZone(tz string) (string, bool) {
	t := tables()
	name := strings.TrimSpace(tz)
	if i, ok := t.byName[name]; ok {
		return t.zones[i].Region, true
	}
	if target, ok := t.links[name]; ok {
		if i, ok := t.byName[target]; ok {
			return t.zones[i].Region, true
		}
	}
	return "", false
}

// TimeZonesForRegion returns every zone associated with a region, in tzdata
// order. Unrecognized codes return nil.
func TimeZonesForRegion(code string) []TimeZone {
	c := Canonicalize(code)
	if c == "" {
		return nil
	}
	t := tables()
	idx := t.byRegion[c]
	if len(idx) == 0 {
		return nil
	}
	out := make([]TimeZone, len(idx))
	for i, j := range idx {
		out[i] = t.zones[j]
	}
	return out
}

// ApproximateCoordinate returns the principal location of the region's
// first time zone.
func ApproximateCoordinate(code string) (domain.Coordinate, bool) {
	zones := TimeZonesForRegion(code)
	if len(zones) == 0 {
		return domain.Coordinate{}, false
	}
	return zones[0].Coordinate, true
}

// Nearest returns the zone whose principal location is closest to c along
// with the distance in kilometres. It is only a coarse fallback when no
// geocoder is available: border areas may resolve to the neighbour.
func Nearest(c domain.Coordinate) (TimeZone, float64) {
	t := tables()
	best, bestDist := -1, 0.0
	for i, z := range t.zones {
		d := c.DistanceKM(z.Coordinate)
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return t.zones[best], bestDist
}
