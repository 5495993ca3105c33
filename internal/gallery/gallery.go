// Package gallery validates raw enrollment data into the fixed-dimension
// reference set used for matching.
package gallery

import (
	"fmt"
	"strings"

	"github.com/andresmejia3/rollcall/internal/apperrors"
	"github.com/andresmejia3/rollcall/internal/logger"
	"github.com/andresmejia3/rollcall/internal/vector"
)

// Raw is the three parallel sequences supplied by a gallery source.
// JSON names follow the get-faces payload shape (names, faces_data, Eroll).
type Raw struct {
	Vectors     [][]float64 `json:"faces_data"`
	Labels      []string    `json:"names"`
	Identifiers []string    `json:"Eroll"`
}

// Append adds one entry to all three sequences.
func (r *Raw) Append(vec []uint8, label, identifier string) {
	f := make([]float64, len(vec))
	for i, b := range vec {
		f[i] = float64(b)
	}
	r.Vectors = append(r.Vectors, f)
	r.Labels = append(r.Labels, label)
	r.Identifiers = append(r.Identifiers, identifier)
}

// Entry is one enrolled face.
type Entry struct {
	Vector     []uint8
	Label      string
	Identifier string
}

// Gallery is the validated, read-only reference set for one matching session.
type Gallery struct {
	Dimension int
	Entries   []Entry
}

// Len returns the number of entries.
func (g *Gallery) Len() int {
	return len(g.Entries)
}

// IdentifierFor returns the identifier paired with the first entry carrying label.
func (g *Gallery) IdentifierFor(label string) (string, bool) {
	for _, e := range g.Entries {
		if e.Label == label {
			return e.Identifier, true
		}
	}
	return "", false
}

// Event records one repair or drop performed during validation.
type Event struct {
	Index    int
	Label    string
	Original int
	Final    int
	Action   vector.Action // truncated, padded, or "dropped"
	Reason   string
}

// Dropped marks an entry that could not be salvaged.
const Dropped vector.Action = "dropped"

// Report enumerates everything validation changed.
type Report struct {
	Events []Event
}

// Repairs counts truncation and padding events.
func (r Report) Repairs() int {
	n := 0
	for _, e := range r.Events {
		if e.Action == vector.Truncated || e.Action == vector.Padded {
			n++
		}
	}
	return n
}

// Drops counts entries that were discarded.
func (r Report) Drops() int {
	return len(r.Events) - r.Repairs()
}

// Validate normalizes every raw vector to vector.Dimension and assembles a Gallery.
// Ragged input is expected; only structural problems are errors.
func Validate(raw Raw) (*Gallery, Report, error) {
	return ValidateDim(raw, vector.Dimension)
}

// ValidateDim is Validate with an explicit declared dimension.
func ValidateDim(raw Raw, dim int) (*Gallery, Report, error) {
	var report Report

	// 1. Preconditions
	if len(raw.Labels) == 0 || len(raw.Identifiers) == 0 || len(raw.Vectors) == 0 {
		return nil, report, apperrors.New(apperrors.EmptyGallery, "no valid face data available", nil)
	}
	if len(raw.Labels) != len(raw.Vectors) || len(raw.Identifiers) != len(raw.Vectors) {
		return nil, report, apperrors.New(apperrors.InvalidGallery,
			fmt.Sprintf("gallery sequences differ in length: %d vectors, %d labels, %d identifiers",
				len(raw.Vectors), len(raw.Labels), len(raw.Identifiers)), nil)
	}

	// 2. Normalize each entry
	g := &Gallery{Dimension: dim, Entries: make([]Entry, 0, len(raw.Vectors))}
	for i, rv := range raw.Vectors {
		label := raw.Labels[i]
		if strings.TrimSpace(label) == "" {
			report.Events = append(report.Events, Event{
				Index: i, Original: len(rv), Action: Dropped, Reason: "missing label",
			})
			logger.Warning("dropping unlabeled gallery entry", logger.LoggerOptions{Key: "index", Data: i})
			continue
		}

		normalized, repair := vector.Normalize(rv, dim)
		if repair.Changed() {
			report.Events = append(report.Events, Event{
				Index: i, Label: label, Original: repair.Original, Final: repair.Final, Action: repair.Action,
			})
			logger.Info("normalized gallery vector",
				logger.LoggerOptions{Key: "label", Data: label},
				logger.LoggerOptions{Key: "action", Data: string(repair.Action)},
				logger.LoggerOptions{Key: "from", Data: repair.Original},
				logger.LoggerOptions{Key: "to", Data: repair.Final},
			)
		}

		g.Entries = append(g.Entries, Entry{
			Vector:     vector.FromNumbers(normalized),
			Label:      label,
			Identifier: raw.Identifiers[i],
		})
	}

	// 3. Postcondition
	if len(g.Entries) == 0 {
		return nil, report, apperrors.New(apperrors.NoUsableGalleryData, "no valid face data after filtering", nil)
	}
	return g, report, nil
}
