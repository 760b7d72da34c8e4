package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/where/internal/region"
	"github.com/couchcryptid/where/internal/where"
)

type outputFormat string

const (
	formatText outputFormat = "text"
	formatJSON outputFormat = "json"
	formatYAML outputFormat = "yaml"
)

func parseFormat(s string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(s)); f {
	case formatText, formatJSON, formatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json, or yaml)", s)
	}
}

type zoneList struct {
	Region    string            `json:"region" yaml:"region"`
	Name      string            `json:"name" yaml:"name"`
	TimeZones []region.TimeZone `json:"time_zones" yaml:"time_zones"`
}

type changeOutput struct {
	Source      string             `json:"source" yaml:"source"`
	Removed     bool               `json:"removed,omitempty" yaml:"removed,omitempty"`
	Observation *where.Observation `json:"observation,omitempty" yaml:"observation,omitempty"`
	At          time.Time          `json:"at" yaml:"at"`
}

func encode(out io.Writer, format outputFormat, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("format %q cannot encode %T", format, v)
	}
}

// render writes observations best first.
func render(out io.Writer, format outputFormat, obs []where.Observation) error {
	if format != formatText {
		if obs == nil {
			obs = []where.Observation{}
		}
		return encode(out, format, obs)
	}
	if len(obs) == 0 {
		_, err := fmt.Fprintln(out, "region unknown")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tREGION\tNAME\tCOORDINATE\tOBSERVED")
	for _, o := range obs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			o.Source(), o.RegionCode(), o.RegionName(), coordinateText(o), o.Timestamp().Format(time.RFC3339))
	}
	return tw.Flush()
}

func coordinateText(o where.Observation) string {
	c, ok := o.Coordinate()
	if !ok {
		return "-"
	}
	s := fmt.Sprintf("%.4f,%.4f", c.Lat, c.Lon)
	if o.Approximate() {
		s = "~" + s
	}
	return s
}

func renderChange(out io.Writer, format outputFormat, c where.Change) error {
	if format == formatText {
		if c.Removal() {
			_, err := fmt.Fprintf(out, "%s %s removed\n", c.At.Format(time.RFC3339), c.Source)
			return err
		}
		_, err := fmt.Fprintf(out, "%s %s %s (%s)\n", c.At.Format(time.RFC3339), c.Source,
			c.Observation.RegionCode(), c.Observation.RegionName())
		return err
	}
	return encode(out, format, changeOutput{
		Source:      c.Source.String(),
		Removed:     c.Removal(),
		Observation: c.Observation,
		At:          c.At,
	})
}

func renderZones(out io.Writer, format outputFormat, zl zoneList) error {
	if format != formatText {
		if zl.TimeZones == nil {
			zl.TimeZones = []region.TimeZone{}
		}
		return encode(out, format, zl)
	}
	if _, err := fmt.Fprintf(out, "%s (%s)\n", zl.Name, zl.Region); err != nil {
		return err
	}
	for _, z := range zl.TimeZones {
		line := "  " + z.Name
		if z.Comment != "" {
			line += "\t" + z.Comment
		}
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}
