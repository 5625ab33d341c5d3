/*
Package source fetches the raw records of the upstream records service.

PURPOSE:
  The records service publishes each dataset as a "site" returning
  {"Response": {"Data": [...]}}. This package gets those payloads from the
  service, from the last stored snapshot, or from local fixture files, and
  hands the decoded records to the report package.

DATASETS:
  employer      employees           site 1
  PTO           leave records       site 27
  projects      projects            site 21
  WorkingTime   booked hours        site 29

SOURCES:
  APISource       POST <base><site>/index with the API key
  FixtureSource   <dir>/<dataset>.json
  SnapshotSource  wraps another source, saves good payloads, serves the
                  last one when the wrapped source fails
  Fallback        tries sources in order

  New assembles the chain from Options:
    UseAPI=false: fixture
    UseAPI=true:  snapshot(api) → fixture

FAILURES:
  A source error never aborts a report. LoadDataset and LoadProjectDataset
  log it and leave the collection empty; the error they return wraps
  report.ErrDatasetUnavailable.
*/
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/attendance-export/report"
	"github.com/warp/attendance-export/tracking"
)

// Kind names a dataset of the records service.
type Kind string

const (
	KindEmployees   Kind = "employer"
	KindLeaves      Kind = "PTO"
	KindProjects    Kind = "projects"
	KindWorkingTime Kind = "WorkingTime"
)

// AllKinds lists every dataset, in fetch order.
var AllKinds = []Kind{KindEmployees, KindLeaves, KindProjects, KindWorkingTime}

// FixtureFile returns the fixture file name for k.
func (k Kind) FixtureFile() string { return string(k) + ".json" }

// Payload is one fetched dataset.
type Payload struct {
	Kind    Kind
	Origin  string // "api", "snapshot" or "fixture"
	Raw     []byte
	Records []report.Record
}

// Source fetches one dataset.
type Source interface {
	Fetch(ctx context.Context, kind Kind) (*Payload, error)
}

type envelope struct {
	Response *struct {
		Data []report.Record `json:"Data"`
	} `json:"Response"`
}

// ErrMalformedPayload is returned for JSON without a Response.Data list.
var ErrMalformedPayload = errors.New("malformed payload")

// Decode parses a records service payload. Numbers are kept as json.Number.
func Decode(raw []byte) ([]report.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var env envelope
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if env.Response == nil || env.Response.Data == nil {
		return nil, fmt.Errorf("%w: missing Response.Data", ErrMalformedPayload)
	}
	return env.Response.Data, nil
}

// =============================================================================
// ASSEMBLY
// =============================================================================

// SnapshotStore persists raw payloads. Implemented by store/sqlite.Store.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, kind string, payload []byte) error
	LatestSnapshot(ctx context.Context, kind string) ([]byte, time.Time, error)
}

// Options configures New.
type Options struct {
	UseAPI            bool
	BaseURL           string
	APIKey            string
	EmployeeSiteID    int
	LeaveSiteID       int
	ProjectSiteID     int
	WorkingTimeSiteID int
	Timeout           time.Duration
	FixtureDir        string
}

// New builds the source chain described in the package doc. store may be
// nil, in which case no snapshots are kept.
func New(opts Options, store SnapshotStore, log logrus.FieldLogger) Source {
	fixture := &FixtureSource{Dir: opts.FixtureDir}
	if !opts.UseAPI {
		return fixture
	}

	var api Source = &APISource{
		BaseURL: opts.BaseURL,
		APIKey:  opts.APIKey,
		SiteIDs: map[Kind]int{
			KindEmployees:   opts.EmployeeSiteID,
			KindLeaves:      opts.LeaveSiteID,
			KindProjects:    opts.ProjectSiteID,
			KindWorkingTime: opts.WorkingTimeSiteID,
		},
		Client: &http.Client{Timeout: opts.Timeout},
	}
	if store != nil {
		api = &SnapshotSource{Inner: api, Store: store, Log: log}
	}
	return NewFallback(log, api, fixture)
}

// LoadDataset fetches employees and leaves from src. Each collection that
// cannot be fetched is left empty; the returned error then wraps
// report.ErrDatasetUnavailable and the dataset is still usable.
func LoadDataset(ctx context.Context, src Source, log logrus.FieldLogger) (report.Dataset, error) {
	got, err := fetchAll(ctx, src, log, KindEmployees, KindLeaves)
	return report.Dataset{
		Employees: got[KindEmployees],
		Leaves:    got[KindLeaves],
	}, err
}

// LoadProjectDataset fetches employees, projects and working time from src,
// degrading like LoadDataset.
func LoadProjectDataset(ctx context.Context, src Source, log logrus.FieldLogger) (tracking.Dataset, error) {
	got, err := fetchAll(ctx, src, log, KindEmployees, KindProjects, KindWorkingTime)
	return tracking.Dataset{
		Employees:   got[KindEmployees],
		Projects:    got[KindProjects],
		WorkingTime: got[KindWorkingTime],
	}, err
}

func fetchAll(ctx context.Context, src Source, log logrus.FieldLogger, kinds ...Kind) (map[Kind][]report.Record, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	got := make(map[Kind][]report.Record, len(kinds))
	var errs []error
	for _, kind := range kinds {
		p, err := src.Fetch(ctx, kind)
		if err != nil {
			log.WithError(err).WithField("kind", kind).Error("dataset unavailable")
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
			continue
		}
		log.WithFields(logrus.Fields{
			"kind":    kind,
			"origin":  p.Origin,
			"records": len(p.Records),
		}).Info("dataset loaded")
		got[kind] = p.Records
	}

	if len(errs) > 0 {
		return got, fmt.Errorf("%w: %w", report.ErrDatasetUnavailable, errors.Join(errs...))
	}
	return got, nil
}
