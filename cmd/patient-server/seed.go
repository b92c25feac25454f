package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ehr/patients/internal/domain/patient"
)

// seedRecord is one patient from a seed file, re-encoded as the JSON body
// POST /create would receive.
type seedRecord struct {
	Label string
	Body  []byte
}

func loadSeed(path string) ([]seedRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	records, err := parseSeed(data)
	if err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return records, nil
}

// parseSeed accepts either the persisted layout (a mapping of id to record,
// order kept) or a list of records that carry their own id. JSON input is
// read as YAML.
func parseSeed(data []byte) ([]seedRecord, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	var records []seedRecord
	switch root.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(root.Content); i += 2 {
			id := root.Content[i].Value
			fields, err := decodeSeedFields(root.Content[i+1])
			if err != nil {
				return nil, fmt.Errorf("record %s: %w", id, err)
			}
			fields["id"] = id
			rec, err := newSeedRecord(id, fields)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
	case yaml.SequenceNode:
		for i, item := range root.Content {
			fields, err := decodeSeedFields(item)
			if err != nil {
				return nil, fmt.Errorf("record #%d: %w", i+1, err)
			}
			label := fmt.Sprintf("#%d", i+1)
			if id, ok := fields["id"].(string); ok && id != "" {
				label = id
			}
			rec, err := newSeedRecord(label, fields)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
	default:
		return nil, errors.New("expected a mapping of id to record or a list of records")
	}
	return records, nil
}

func decodeSeedFields(n *yaml.Node) (map[string]any, error) {
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping of fields", n.Line)
	}
	fields := map[string]any{}
	if err := n.Decode(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func newSeedRecord(label string, fields map[string]any) (seedRecord, error) {
	body, err := json.Marshal(fields)
	if err != nil {
		return seedRecord{}, fmt.Errorf("record %s: %w", label, err)
	}
	return seedRecord{Label: label, Body: body}, nil
}

type importFailure struct {
	Label string
	Err   error
}

type importSummary struct {
	Created []string
	Skipped []string
	Failed  []importFailure
}

// importSeed creates every record through the service. Existing ids are
// skipped; invalid records are reported and do not stop the run.
func importSeed(ctx context.Context, svc *patient.Service, records []seedRecord) importSummary {
	var s importSummary
	for _, r := range records {
		p, err := patient.ParsePatient(r.Body)
		if err != nil {
			s.Failed = append(s.Failed, importFailure{Label: r.Label, Err: err})
			continue
		}
		_, err = svc.Create(ctx, p)
		switch {
		case errors.Is(err, patient.ErrConflict):
			s.Skipped = append(s.Skipped, p.ID)
		case err != nil:
			s.Failed = append(s.Failed, importFailure{Label: r.Label, Err: err})
		default:
			s.Created = append(s.Created, p.ID)
		}
	}
	return s
}

func (s importSummary) print(w io.Writer) {
	for _, id := range s.Skipped {
		fmt.Fprintf(w, "skipped %s: already exists\n", id)
	}
	for _, f := range s.Failed {
		fmt.Fprintf(w, "failed  %s: %v\n", f.Label, f.Err)
	}
	fmt.Fprintf(w, "Imported %d, skipped %d, failed %d.\n", len(s.Created), len(s.Skipped), len(s.Failed))
}
