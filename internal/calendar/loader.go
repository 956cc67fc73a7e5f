package calendar

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// HolidayTable is the YAML holiday configuration. Holidays shift yearly and
// are supplied per year by an operator, not computed.
//
//	timezone: Asia/Seoul
//	holidays:
//	  2026:
//	    - date: 2026-01-01
//	      name: New Year's Day
type HolidayTable struct {
	Timezone string                 `yaml:"timezone"`
	Holidays map[int][]HolidayEntry `yaml:"holidays"`
}

// HolidayEntry is one configured market closure.
type HolidayEntry struct {
	Date time.Time `yaml:"date"`
	Name string    `yaml:"name"`
}

// LoadTable reads and validates a holiday table from path. Unknown YAML
// fields fail immediately so a typo in the table cannot silently drop a
// holiday.
func LoadTable(path string) (*HolidayTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read holiday table: %w", err)
	}
	return ParseTable(data)
}

// ParseTable decodes a holiday table from raw YAML.
func ParseTable(data []byte) (*HolidayTable, error) {
	var table HolidayTable
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&table); err != nil {
		return nil, fmt.Errorf("decode holiday table: %w", err)
	}

	if err := table.validate(); err != nil {
		return nil, fmt.Errorf("holiday table validation failed: %w", err)
	}
	return &table, nil
}

func (t *HolidayTable) validate() error {
	if t.Timezone == "" {
		return fmt.Errorf("timezone is required")
	}
	if len(t.Holidays) == 0 {
		return fmt.Errorf("at least one year of holidays is required")
	}
	for year, entries := range t.Holidays {
		for _, e := range entries {
			if e.Date.IsZero() {
				return fmt.Errorf("year %d: entry %q has no date", year, e.Name)
			}
			if e.Date.Year() != year {
				return fmt.Errorf("year %d: entry %s filed under wrong year", year, e.Date.Format("2006-01-02"))
			}
		}
	}
	return nil
}
