// Package gsheet implements the remote spreadsheet backend over the Google
// Sheets values API. One spreadsheet holds every table as a named sheet.
// Authentication is a bearer token supplied by configuration; obtaining
// and refreshing that token is the deployment's concern, not this
// package's. Requests are never retried here: table-level replace writes
// are idempotent, so callers may retry safely.
package gsheet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/classquest/classquest/internal/domain/shared"
	"github.com/classquest/classquest/internal/infrastructure/persistence/tablestore"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains the remote spreadsheet settings.
type Config struct {
	// SpreadsheetID identifies the spreadsheet holding all tables.
	SpreadsheetID string

	// AccessToken is the OAuth bearer token for the Sheets API.
	AccessToken string

	// BaseURL overrides the API endpoint, for tests.
	BaseURL string

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration
}

const defaultBaseURL = "https://sheets.googleapis.com/v4/spreadsheets"

// ══════════════════════════════════════════════════════════════════════════════
// STORE
// ══════════════════════════════════════════════════════════════════════════════

// Store talks to one remote spreadsheet. Every table operation is a single
// HTTP round trip (plus one for the clear preceding a replace).
type Store struct {
	cfg    Config
	client *http.Client
}

// New validates the configuration and creates the remote store. Missing
// credentials are a ConfigurationError: the caller explicitly selected
// this backend, so there is no silent fallback from here.
func New(cfg Config) (*Store, error) {
	if cfg.SpreadsheetID == "" || cfg.AccessToken == "" {
		return nil, shared.ErrSheetNotConfigured
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Store{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// valueRange is the wire format of the values API.
type valueRange struct {
	Range          string     `json:"range,omitempty"`
	MajorDimension string     `json:"majorDimension,omitempty"`
	Values         [][]string `json:"values"`
}

// ReadTable fetches one sheet and maps its rows by the header row. An
// empty sheet counts as a first read and is materialized with seed rows.
func (s *Store) ReadTable(ctx context.Context, name string) ([]tablestore.Row, error) {
	schema, err := tablestore.SchemaFor(name)
	if err != nil {
		return nil, err
	}

	var vr valueRange
	if err := s.do(ctx, http.MethodGet, s.valuesURL(name, ""), nil, &vr); err != nil {
		return nil, err
	}

	if len(vr.Values) == 0 {
		if err := s.WriteTable(ctx, name, schema.Seed); err != nil {
			return nil, err
		}
		return tablestore.CloneRows(schema.Seed), nil
	}

	header := vr.Values[0]
	rows := make([]tablestore.Row, 0, len(vr.Values)-1)
	for _, rec := range vr.Values[1:] {
		row := make(tablestore.Row, len(schema.Columns))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, schema.RowFromValues(schema.Values(row)))
	}
	return rows, nil
}

// WriteTable clears the sheet, then uploads header plus rows.
func (s *Store) WriteTable(ctx context.Context, name string, rows []tablestore.Row) error {
	schema, err := tablestore.SchemaFor(name)
	if err != nil {
		return err
	}

	if err := s.do(ctx, http.MethodPost, s.valuesURL(name, ":clear"), nil, nil); err != nil {
		return err
	}

	values := make([][]string, 0, len(rows)+1)
	values = append(values, schema.Columns)
	for _, row := range rows {
		values = append(values, schema.Values(row))
	}
	body := valueRange{Range: name, MajorDimension: "ROWS", Values: values}
	return s.do(ctx, http.MethodPut, s.valuesURL(name, "")+"?valueInputOption=RAW", body, nil)
}

// AppendRow uses the native append endpoint; the backend finds the table's
// last row itself.
func (s *Store) AppendRow(ctx context.Context, name string, row tablestore.Row) error {
	schema, err := tablestore.SchemaFor(name)
	if err != nil {
		return err
	}
	body := valueRange{Values: [][]string{schema.Values(row)}}
	return s.do(ctx, http.MethodPost, s.valuesURL(name, ":append")+"?valueInputOption=USER_ENTERED", body, nil)
}

// valuesURL builds .../values/<sheet><suffix>.
func (s *Store) valuesURL(sheet, suffix string) string {
	return fmt.Sprintf("%s/%s/values/%s%s",
		s.cfg.BaseURL, url.PathEscape(s.cfg.SpreadsheetID), url.PathEscape(sheet), suffix)
}

// do executes one authenticated request and decodes the response into out.
func (s *Store) do(ctx context.Context, method, rawURL string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return shared.WrapError("gsheet", "Request", shared.ErrBackendIO, "encode body", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return shared.WrapError("gsheet", "Request", shared.ErrBackendIO, "create request", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.AccessToken)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return shared.WrapError("gsheet", "Request", shared.ErrBackendIO, "execute request", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return shared.WrapError("gsheet", "Request", shared.ErrBackendIO, "read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("status %d: %s", resp.StatusCode, string(respBody))
		return shared.NewDomainError("gsheet", "Request", shared.ErrBackendIO, msg)
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return shared.WrapError("gsheet", "Request", shared.ErrBackendIO, "decode response", err)
		}
	}
	return nil
}
