package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// SnapshotSource saves every payload Inner returns and replays the latest
// saved payload when Inner fails.
type SnapshotSource struct {
	Inner Source
	Store SnapshotStore
	Log   logrus.FieldLogger
}

// Fetch implements Source.
func (s *SnapshotSource) Fetch(ctx context.Context, kind Kind) (*Payload, error) {
	log := s.logger().WithField("kind", kind)

	p, fetchErr := s.Inner.Fetch(ctx, kind)
	if fetchErr == nil {
		if err := s.Store.SaveSnapshot(ctx, string(kind), p.Raw); err != nil {
			log.WithError(err).Warn("could not save snapshot")
		}
		return p, nil
	}

	raw, fetchedAt, err := s.Store.LatestSnapshot(ctx, string(kind))
	if err != nil {
		return nil, errors.Join(fetchErr, fmt.Errorf("load snapshot: %w", err))
	}
	if raw == nil {
		return nil, fetchErr
	}
	records, err := Decode(raw)
	if err != nil {
		return nil, errors.Join(fetchErr, fmt.Errorf("snapshot: %w", err))
	}

	log.WithError(fetchErr).WithField("fetched_at", fetchedAt).Warn("serving stored snapshot")
	return &Payload{Kind: kind, Origin: "snapshot", Raw: raw, Records: records}, nil
}

func (s *SnapshotSource) logger() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}
