package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// CSVSource reads a relation CSV and an optional character CSV.
//
// The relation file has a header row naming the subject, object and
// relation columns, in any order. The character file has no header and
// holds id, name, status and species in that order.
type CSVSource struct {
	Relations  string
	Characters string
}

// Load reads both files. A missing character file is not an error.
func (s CSVSource) Load(ctx context.Context) (*Raw, error) {
	f, err := os.Open(s.Relations)
	if err != nil {
		return nil, fmt.Errorf("open relations: %w", err)
	}
	defer f.Close()

	raw := &Raw{}
	if raw.Relations, err = ReadRelations(f); err != nil {
		return nil, fmt.Errorf("%s: %w", s.Relations, err)
	}

	if s.Characters == "" {
		return raw, nil
	}
	cf, err := os.Open(s.Characters)
	if errors.Is(err, os.ErrNotExist) {
		return raw, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open characters: %w", err)
	}
	defer cf.Close()
	if raw.Characters, err = ReadCharacters(cf); err != nil {
		return nil, fmt.Errorf("%s: %w", s.Characters, err)
	}
	return raw, nil
}

// Paths returns the files the source reads.
func (s CSVSource) Paths() []string {
	if s.Characters == "" {
		return []string{s.Relations}
	}
	return []string{s.Relations, s.Characters}
}

// ReadRelations parses a relation CSV with a subject,object,relation header.
func ReadRelations(r io.Reader) ([]Relation, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	col := map[string]int{"subject": -1, "object": -1, "relation": -1}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, ok := col[h]; ok {
			col[h] = i
		}
	}
	for name, i := range col {
		if i < 0 {
			return nil, fmt.Errorf("missing %q column", name)
		}
	}

	var out []Relation
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, Relation{
			Subject: field(rec, col["subject"]),
			Object:  field(rec, col["object"]),
			Type:    field(rec, col["relation"]),
		})
	}
}

// ReadCharacters parses a headerless id,name,status,species CSV.
func ReadCharacters(r io.Reader) ([]Character, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []Character
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, Character{
			ID:      field(rec, 0),
			Name:    field(rec, 1),
			Status:  field(rec, 2),
			Species: field(rec, 3),
		})
	}
}

func field(rec []string, i int) string {
	if i < len(rec) {
		return strings.TrimSpace(rec[i])
	}
	return ""
}
