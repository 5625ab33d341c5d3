package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FixtureSource reads datasets from JSON files in Dir.
type FixtureSource struct {
	Dir string
}

// Fetch implements Source.
func (s *FixtureSource) Fetch(ctx context.Context, kind Kind) (*Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(s.Dir, kind.FixtureFile())
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	records, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	return &Payload{Kind: kind, Origin: "fixture", Raw: raw, Records: records}, nil
}
