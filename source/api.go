package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxPayloadBytes caps a single site response.
const maxPayloadBytes = 64 << 20

// HTTPError is returned when the records service answers with status >= 400.
type HTTPError struct {
	URL    string
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("records service returned %d for %s", e.Status, e.URL)
}

// APISource reads datasets from the records service.
type APISource struct {
	BaseURL string // e.g. http://records.local:50001/items/
	APIKey  string
	SiteIDs map[Kind]int
	Client  *http.Client
}

// URL returns the index endpoint for kind.
func (s *APISource) URL(kind Kind) (string, error) {
	site, ok := s.SiteIDs[kind]
	if !ok || site <= 0 {
		return "", fmt.Errorf("no site configured for %q", kind)
	}
	return fmt.Sprintf("%s/%d/index", strings.TrimRight(s.BaseURL, "/"), site), nil
}

// Fetch implements Source.
func (s *APISource) Fetch(ctx context.Context, kind Kind) (*Payload, error) {
	url, err := s.URL(kind)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]string{"ApiKey": s.APIKey})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &HTTPError{URL: url, Status: resp.StatusCode}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	records, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	return &Payload{Kind: kind, Origin: "api", Raw: raw, Records: records}, nil
}
