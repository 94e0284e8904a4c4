package datastore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"time"
)

// DatasetteClient posts records to a remote Datasette instance through the
// datasette-insert plugin API.
type DatasetteClient struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
}

// NewDatasetteClient returns a client for the instance at baseURL. The token
// is sent as a bearer token when set.
func NewDatasetteClient(baseURL, apiToken string) *DatasetteClient {
	return &DatasetteClient{
		baseURL:  baseURL,
		apiToken: apiToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Connect validates the configured base URL. The actual connection is made
// per request.
func (c *DatasetteClient) Connect() error {
	if _, err := url.Parse(c.baseURL); err != nil {
		return fmt.Errorf("invalid datasette URL: %w", err)
	}
	return nil
}

// CreateTable is a no-op: the insert API creates tables on demand.
func (c *DatasetteClient) CreateTable(string) error {
	return nil
}

func (c *DatasetteClient) insertURL(database, table string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid datasette URL: %w", err)
	}
	u.Path = path.Join(u.Path, "-/insert", database, table)
	return u.String(), nil
}

// BatchInsert posts records to the named table, creating it on first use.
func (c *DatasetteClient) BatchInsert(database string, table string, records []map[string]any) error {
	if len(records) == 0 {
		return nil
	}

	endpoint, err := c.insertURL(database, table)
	if err != nil {
		return err
	}

	body, err := json.Marshal(map[string]any{"rows": records})
	if err != nil {
		return fmt.Errorf("failed to encode the insert payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build the insert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("insert request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var detail map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
			return fmt.Errorf("datasette returned status %d", resp.StatusCode)
		}
		return fmt.Errorf("datasette rejected the insert: %v", detail)
	}

	return nil
}

// Close satisfies Store; the HTTP client needs no teardown.
func (c *DatasetteClient) Close() error {
	return nil
}
