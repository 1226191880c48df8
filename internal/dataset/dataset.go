// Package dataset handles import of previously captured activity records
// for playback against the risk engine.
//
// Imported records are already scored: they carry their own risk_score and
// are never reclassified. Unknown type strings are preserved verbatim.
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"proctord/internal/activity"
)

// ErrEmptyDataset signals an import call that received no records. The
// caller's store is left unchanged; this is a no-op, not a failure of the
// engine.
var ErrEmptyDataset = errors.New("dataset contains no records")

// Record is one imported activity observation.
type Record struct {
	// Timestamp is RFC 3339 or a date-only form.
	Timestamp string `json:"timestamp" yaml:"timestamp"`

	// Type is a free string; values outside the closed enumeration are
	// kept as-is.
	Type string `json:"type" yaml:"type"`

	Details string `json:"details,omitempty" yaml:"details,omitempty"`

	// RiskScore defaults to 0 when absent and is clamped to [0, 100]
	// during conversion.
	RiskScore float64 `json:"risk_score" yaml:"risk_score"`
}

// recordSchema validates the shape of imported JSON datasets.
const recordSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "array",
	"items": {
		"type": "object",
		"properties": {
			"timestamp": {"type": "string", "minLength": 1},
			"type": {"type": "string", "minLength": 1},
			"details": {"type": "string"},
			"risk_score": {"type": "number"}
		},
		"required": ["timestamp", "type"]
	}
}`

var compiledSchema = jsonschema.MustCompileString("dataset.schema.json", recordSchema)

// timestampLayouts are accepted in order. RFC 3339 first; the rest cover
// datasets exported by hand or by spreadsheets.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Load reads a dataset file. The format is chosen by extension: .yaml/.yml
// parse as YAML, everything else as JSON. JSON input is additionally
// validated against the record schema.
func Load(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// ParseJSON parses and schema-validates a JSON dataset.
func ParseJSON(data []byte) ([]Record, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}

	if err := compiledSchema.Validate(raw); err != nil {
		return nil, fmt.Errorf("validate dataset: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	return records, nil
}

func parseYAML(data []byte) ([]Record, error) {
	var records []Record
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}
	for i, r := range records {
		if r.Timestamp == "" || r.Type == "" {
			return nil, fmt.Errorf("validate dataset: record %d missing timestamp or type", i)
		}
	}
	return records, nil
}

// Convert turns imported records into stream events, sorted newest-first by
// timestamp. Scores are clamped to [0, 100]; absent scores stay 0.
// Records with unparseable timestamps keep their relative order at the
// zero time rather than being dropped.
//
// An empty or nil batch returns ErrEmptyDataset and no events.
func Convert(records []Record) ([]activity.Event, error) {
	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}

	events := make([]activity.Event, 0, len(records))
	for _, r := range records {
		score := r.RiskScore
		if score < 0 {
			score = 0
		}
		if score > 100 {
			score = 100
		}
		events = append(events, activity.NewEvent(activity.Type(r.Type), r.Details, score, parseTimestamp(r.Timestamp)))
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
	return events, nil
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
