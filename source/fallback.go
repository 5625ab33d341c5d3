package source

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// Fallback tries each source in order and returns the first success.
type Fallback struct {
	sources []Source
	log     logrus.FieldLogger
}

// NewFallback creates a Fallback over sources.
func NewFallback(log logrus.FieldLogger, sources ...Source) *Fallback {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Fallback{sources: sources, log: log}
}

// Fetch implements Source. The error joins every source's failure.
func (f *Fallback) Fetch(ctx context.Context, kind Kind) (*Payload, error) {
	var errs []error
	for i, src := range f.sources {
		p, err := src.Fetch(ctx, kind)
		if err == nil {
			return p, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
		if i < len(f.sources)-1 {
			f.log.WithError(err).WithField("kind", kind).Warn("source failed, falling back")
		}
	}
	if len(errs) == 0 {
		return nil, errors.New("no sources configured")
	}
	return nil, errors.Join(errs...)
}
