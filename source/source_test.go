package source_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-export/report"
	"github.com/warp/attendance-export/source"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const employeesJSON = `{"Response":{"Data":[{"ResultId":1,"ClassHash":{"ClassD":"E1"},"DescriptionHash":{"DescriptionA":"An"},"NumHash":{"NumS":40}}]}}`
const leavesJSON = `{"Response":{"Data":[{"ClassHash":{"ClassE":"1","ClassA":"Annual Leave","ClassB":8},"DateHash":{"DateC":"2025-04-01T00:00:00"}}]}}`

func writeFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "employer.json"), []byte(employeesJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "PTO.json"), []byte(leavesJSON), 0o644))
	return dir
}

func quietLogger() (*logrus.Logger, *test.Hook) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return log, hook
}

type memSnapshots struct {
	mu    sync.Mutex
	saved map[string][]byte
}

func newMemSnapshots() *memSnapshots { return &memSnapshots{saved: make(map[string][]byte)} }

func (m *memSnapshots) SaveSnapshot(_ context.Context, kind string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[kind] = append([]byte(nil), payload...)
	return nil
}

func (m *memSnapshots) LatestSnapshot(_ context.Context, kind string) ([]byte, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.saved[kind]
	if !ok {
		return nil, time.Time{}, nil
	}
	return raw, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), nil
}

type failingSource struct{ err error }

func (f failingSource) Fetch(context.Context, source.Kind) (*source.Payload, error) {
	return nil, f.err
}

// =============================================================================
// DECODE
// =============================================================================

func TestDecode(t *testing.T) {
	t.Run("keeps numbers as json.Number", func(t *testing.T) {
		records, err := source.Decode([]byte(employeesJSON))
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, json.Number("1"), records[0]["ResultId"])
	})

	t.Run("empty data list is valid", func(t *testing.T) {
		records, err := source.Decode([]byte(`{"Response":{"Data":[]}}`))
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("missing data is malformed", func(t *testing.T) {
		for _, raw := range []string{`{}`, `{"Response":{}}`, `not json`} {
			_, err := source.Decode([]byte(raw))
			assert.ErrorIs(t, err, source.ErrMalformedPayload, raw)
		}
	})
}

// =============================================================================
// FIXTURES
// =============================================================================

func TestFixtureSource(t *testing.T) {
	dir := writeFixtures(t)
	src := &source.FixtureSource{Dir: dir}

	p, err := src.Fetch(context.Background(), source.KindLeaves)
	require.NoError(t, err)
	assert.Equal(t, "fixture", p.Origin)
	assert.Len(t, p.Records, 1)

	_, err = (&source.FixtureSource{Dir: t.TempDir()}).Fetch(context.Background(), source.KindLeaves)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBundledFixturesDecode(t *testing.T) {
	src := &source.FixtureSource{Dir: filepath.Join("..", "fixtures")}
	for _, kind := range source.AllKinds {
		p, err := src.Fetch(context.Background(), kind)
		require.NoError(t, err, kind)
		assert.NotEmpty(t, p.Records, kind)
	}
}

// =============================================================================
// API
// =============================================================================

func TestAPISource_PostsKeyToSiteIndex(t *testing.T) {
	// GIVEN: a records service with sites 1 and 27
	var mu sync.Mutex
	var gotPaths []string
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		var req map[string]string
		_ = json.Unmarshal(body, &req)
		mu.Lock()
		gotPaths = append(gotPaths, r.URL.Path)
		gotKey = req["ApiKey"]
		mu.Unlock()
		switch r.URL.Path {
		case "/items/1/index":
			_, _ = io.WriteString(w, employeesJSON)
		case "/items/27/index":
			_, _ = io.WriteString(w, leavesJSON)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src := &source.APISource{
		BaseURL: srv.URL + "/items/",
		APIKey:  "secret",
		SiteIDs: map[source.Kind]int{source.KindEmployees: 1, source.KindLeaves: 27},
		Client:  srv.Client(),
	}

	// WHEN: both datasets are fetched
	emp, err := src.Fetch(context.Background(), source.KindEmployees)
	require.NoError(t, err)
	lv, err := src.Fetch(context.Background(), source.KindLeaves)
	require.NoError(t, err)

	// THEN: each site was hit once with the key
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/items/1/index", "/items/27/index"}, gotPaths)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "api", emp.Origin)
	assert.Len(t, emp.Records, 1)
	assert.Len(t, lv.Records, 1)
}

func TestAPISource_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/1/index" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `{"Response":null}`)
	}))
	defer srv.Close()

	src := &source.APISource{
		BaseURL: srv.URL,
		SiteIDs: map[source.Kind]int{source.KindEmployees: 1, source.KindLeaves: 27},
	}

	_, err := src.Fetch(context.Background(), source.KindEmployees)
	var httpErr *source.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadGateway, httpErr.Status)

	_, err = src.Fetch(context.Background(), source.KindLeaves)
	assert.ErrorIs(t, err, source.ErrMalformedPayload)

	_, err = (&source.APISource{BaseURL: srv.URL}).Fetch(context.Background(), source.KindLeaves)
	assert.Error(t, err, "no site configured")
}

func TestAPISource_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	src := &source.APISource{
		BaseURL: srv.URL,
		SiteIDs: map[source.Kind]int{source.KindLeaves: 27},
		Client:  &http.Client{Timeout: 50 * time.Millisecond},
	}
	_, err := src.Fetch(context.Background(), source.KindLeaves)
	assert.Error(t, err)
}

// =============================================================================
// SNAPSHOTS AND FALLBACK
// =============================================================================

func TestSnapshotSource(t *testing.T) {
	log, hook := quietLogger()
	store := newMemSnapshots()
	dir := writeFixtures(t)

	// GIVEN: a successful fetch through the snapshot wrapper
	ok := &source.SnapshotSource{Inner: &source.FixtureSource{Dir: dir}, Store: store, Log: log}
	_, err := ok.Fetch(context.Background(), source.KindLeaves)
	require.NoError(t, err)
	assert.Equal(t, []byte(leavesJSON), store.saved["PTO"])

	// WHEN: the inner source starts failing
	down := errors.New("connection refused")
	failing := &source.SnapshotSource{Inner: failingSource{down}, Store: store, Log: log}
	p, err := failing.Fetch(context.Background(), source.KindLeaves)

	// THEN: the stored payload is served
	require.NoError(t, err)
	assert.Equal(t, "snapshot", p.Origin)
	assert.Len(t, p.Records, 1)
	assert.Equal(t, "serving stored snapshot", hook.LastEntry().Message)

	// AND: without a snapshot the original error surfaces
	_, err = failing.Fetch(context.Background(), source.KindEmployees)
	assert.ErrorIs(t, err, down)
}

func TestFallback(t *testing.T) {
	log, hook := quietLogger()
	dir := writeFixtures(t)
	down := errors.New("down")

	fb := source.NewFallback(log, failingSource{down}, &source.FixtureSource{Dir: dir})
	p, err := fb.Fetch(context.Background(), source.KindEmployees)
	require.NoError(t, err)
	assert.Equal(t, "fixture", p.Origin)
	assert.Equal(t, "source failed, falling back", hook.LastEntry().Message)

	other := errors.New("also down")
	_, err = source.NewFallback(log, failingSource{down}, failingSource{other}).Fetch(context.Background(), source.KindEmployees)
	assert.ErrorIs(t, err, down)
	assert.ErrorIs(t, err, other)
}

func TestNew(t *testing.T) {
	dir := writeFixtures(t)

	src := source.New(source.Options{FixtureDir: dir}, nil, nil)
	assert.IsType(t, &source.FixtureSource{}, src)

	// An unreachable service falls back to fixtures.
	src = source.New(source.Options{
		UseAPI:         true,
		BaseURL:        "http://127.0.0.1:1/items/",
		EmployeeSiteID: 1,
		LeaveSiteID:    27,
		Timeout:        time.Second,
		FixtureDir:     dir,
	}, newMemSnapshots(), logrus.New())
	p, err := src.Fetch(context.Background(), source.KindEmployees)
	require.NoError(t, err)
	assert.Equal(t, "fixture", p.Origin)
}

func TestNew_ProjectSites(t *testing.T) {
	// GIVEN: a records service serving the project and working-time sites
	var mu sync.Mutex
	var gotPaths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotPaths = append(gotPaths, r.URL.Path)
		mu.Unlock()
		_, _ = io.WriteString(w, `{"Response":{"Data":[{"IssueId":1}]}}`)
	}))
	defer srv.Close()

	src := source.New(source.Options{
		UseAPI:            true,
		BaseURL:           srv.URL + "/items/",
		ProjectSiteID:     21,
		WorkingTimeSiteID: 29,
		Timeout:           time.Second,
		FixtureDir:        t.TempDir(),
	}, newMemSnapshots(), logrus.New())

	// WHEN: both datasets are fetched
	for _, kind := range []source.Kind{source.KindProjects, source.KindWorkingTime} {
		p, err := src.Fetch(context.Background(), kind)
		require.NoError(t, err, kind)
		assert.Equal(t, "api", p.Origin)
	}

	// THEN: each dataset went to its own site
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/items/21/index", "/items/29/index"}, gotPaths)
}

// =============================================================================
// LOAD DATASET
// =============================================================================

type partialSource struct{ fixture source.Source }

func (p partialSource) Fetch(ctx context.Context, kind source.Kind) (*source.Payload, error) {
	if kind == source.KindLeaves {
		return nil, errors.New("leave site down")
	}
	return p.fixture.Fetch(ctx, kind)
}

func TestLoadDataset(t *testing.T) {
	dir := writeFixtures(t)
	log, _ := quietLogger()

	t.Run("both collections", func(t *testing.T) {
		ds, err := source.LoadDataset(context.Background(), &source.FixtureSource{Dir: dir}, log)
		require.NoError(t, err)
		assert.Len(t, ds.Employees, 1)
		assert.Len(t, ds.Leaves, 1)
	})

	t.Run("one collection missing degrades", func(t *testing.T) {
		ds, err := source.LoadDataset(context.Background(), partialSource{&source.FixtureSource{Dir: dir}}, log)
		assert.ErrorIs(t, err, report.ErrDatasetUnavailable)
		assert.Len(t, ds.Employees, 1)
		assert.Empty(t, ds.Leaves)
	})

	t.Run("nothing available", func(t *testing.T) {
		ds, err := source.LoadDataset(context.Background(), failingSource{errors.New("down")}, log)
		assert.ErrorIs(t, err, report.ErrDatasetUnavailable)
		assert.True(t, ds.IsEmpty())
	})
}

func TestLoadProjectDataset(t *testing.T) {
	log, _ := quietLogger()

	t.Run("bundled fixtures", func(t *testing.T) {
		ds, err := source.LoadProjectDataset(context.Background(), &source.FixtureSource{Dir: filepath.Join("..", "fixtures")}, log)
		require.NoError(t, err)
		assert.Len(t, ds.Employees, 3)
		assert.Len(t, ds.Projects, 3)
		assert.NotEmpty(t, ds.WorkingTime)
	})

	t.Run("missing working time degrades", func(t *testing.T) {
		// writeFixtures has no projects or working time files
		ds, err := source.LoadProjectDataset(context.Background(), &source.FixtureSource{Dir: writeFixtures(t)}, log)
		assert.ErrorIs(t, err, report.ErrDatasetUnavailable)
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.Len(t, ds.Employees, 1)
		assert.Empty(t, ds.Projects)
		assert.Empty(t, ds.WorkingTime)
	})
}
