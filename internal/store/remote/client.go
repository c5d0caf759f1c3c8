// Package remote is the record store backed by a hosted Postgres database
// reached through its PostgREST endpoint (Supabase compatible). Every
// operation is one or more independent HTTP calls; nothing is transactional.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"github.com/kutbudev/promptvault/internal/apperr"
	"github.com/kutbudev/promptvault/internal/logging"
	"github.com/kutbudev/promptvault/internal/models"
	"github.com/kutbudev/promptvault/internal/store"
)

const (
	defaultTimeout = 30 * time.Second
	// defaultPageSize matches PostgREST's default max-rows. A larger page
	// than the server's max-rows would end paging early.
	defaultPageSize = 1000

	preferRepresentation = "return=representation"
	preferMinimal        = "return=minimal"
	preferUpsert         = "resolution=merge-duplicates,return=minimal"
)

var errEmptyInsert = errors.New("insert returned no row")

// Credentials identify the remote project
type Credentials struct {
	URL     string
	AnonKey string
}

// Store implements store.Store over PostgREST
type Store struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	logger     *zap.Logger
	pageSize   int
}

var (
	_ store.Store       = (*Store)(nil)
	_ store.MergeTarget = (*Store)(nil)
	_ store.Snapshot    = (*Store)(nil)
	_ store.Tombstones  = (*Store)(nil)
)

// Option customises a Store
type Option func(*Store)

// WithHTTPClient replaces the default client (30s timeout)
func WithHTTPClient(c *http.Client) Option {
	return func(s *Store) { s.HTTPClient = c }
}

// WithTimeout sets the per-request timeout of the default client
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.HTTPClient.Timeout = d
		}
	}
}

// WithPageSize sets how many rows each page of a full-table read asks for
func WithPageSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = logging.OrNop(l) }
}

// New creates a remote store. It performs no network I/O.
func New(creds Credentials, opts ...Option) (*Store, error) {
	base := strings.TrimRight(strings.TrimSpace(creds.URL), "/")
	if base == "" {
		return nil, apperr.Validation("remote URL is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, apperr.Validation("invalid remote URL %q", creds.URL)
	}
	if strings.TrimSpace(creds.AnonKey) == "" {
		return nil, apperr.Validation("remote anon key is required")
	}

	s := &Store{
		BaseURL:    base,
		APIKey:     creds.AnonKey,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		logger:     zap.NewNop(),
		pageSize:   defaultPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Connect creates a store and probes it, retrying up to attempts times.
// This is the only place the remote backend retries.
func Connect(ctx context.Context, creds Credentials, attempts uint, opts ...Option) (*Store, error) {
	s, err := New(creds, opts...)
	if err != nil {
		return nil, err
	}
	if attempts == 0 {
		attempts = 1
	}

	err = retry.Do(
		func() error { return s.Ping(ctx) },
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn("Remote connection attempt failed", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", s.BaseURL, err)
	}
	s.logger.Info("Connected to remote store", zap.String("url", s.BaseURL))
	return s, nil
}

// APIError is the error body PostgREST returns
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("remote request failed with status %d", e.Status)
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Details != "" {
		msg += " - " + e.Details
	}
	return msg
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}

// makeRequest performs one call against /rest/v1/{table} and returns the
// response body. Failures come back as storage errors.
func (s *Store) makeRequest(ctx context.Context, method, table string, query url.Values, body any, prefer string) ([]byte, error) {
	endpoint := s.BaseURL + "/rest/v1/" + table
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, apperr.Storage(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("apikey", s.APIKey)
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	start := time.Now()
	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, apperr.Storage(fmt.Errorf("failed to make request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Storage(fmt.Errorf("failed to read response body: %w", err))
	}

	s.logger.Debug("Remote request",
		zap.String("method", method),
		zap.String("table", table),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode >= 400 {
		return nil, apperr.Storage(parseAPIError(resp.StatusCode, respBody))
	}
	return respBody, nil
}

// fetch GETs rows of table into out (a pointer to a slice)
func (s *Store) fetch(ctx context.Context, table string, query url.Values, out any) error {
	body, err := s.makeRequest(ctx, http.MethodGet, table, query, nil, "")
	if err != nil {
		return err
	}
	return decodeRows(body, out)
}

// fetchPages reads every row matching query with limit/offset pages until a
// short page comes back. query must order rows totally.
func fetchPages[R any](ctx context.Context, s *Store, table string, query url.Values) ([]R, error) {
	var all []R
	for offset := 0; ; offset += s.pageSize {
		page := maps.Clone(query)
		if page == nil {
			page = url.Values{}
		}
		page.Set("limit", strconv.Itoa(s.pageSize))
		page.Set("offset", strconv.Itoa(offset))
		var rows []R
		if err := s.fetch(ctx, table, page, &rows); err != nil {
			return nil, err
		}
		all = append(all, rows...)
		if len(rows) < s.pageSize {
			return all, nil
		}
	}
}

// write sends a mutation that returns the affected rows into out
func (s *Store) write(ctx context.Context, method, table string, query url.Values, payload, out any) error {
	body, err := s.makeRequest(ctx, method, table, query, payload, preferRepresentation)
	if err != nil {
		return err
	}
	return decodeRows(body, out)
}

func decodeRows(body []byte, out any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperr.Storage(fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

// byUUID builds the filter selecting one row
func byUUID(uuid string) url.Values {
	q := url.Values{}
	q.Set("uuid", "eq."+uuid)
	return q
}

// Ping reads schema_version, which exists once the schema is installed
func (s *Store) Ping(ctx context.Context) error {
	q := url.Values{}
	q.Set("select", "version")
	q.Set("limit", "1")
	_, err := s.makeRequest(ctx, http.MethodGet, "schema_version", q, nil, "")
	return err
}

// Location returns the project URL
func (s *Store) Location() string {
	return s.BaseURL
}

func (s *Store) Close() error {
	s.HTTPClient.CloseIdleConnections()
	return nil
}

// nextOrder returns max(display_order)+1 among the children of parent, or 0
func (s *Store) nextOrder(ctx context.Context, table, parentCol, parent string) (int, error) {
	q := url.Values{}
	q.Set(parentCol, "eq."+parent)
	q.Set("select", "display_order")
	q.Set("order", "display_order.desc")
	q.Set("limit", "1")

	var rows []struct {
		DisplayOrder int `json:"display_order"`
	}
	if err := s.fetch(ctx, table, q, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return store.NextDisplayOrder(0, false), nil
	}
	return store.NextDisplayOrder(rows[0].DisplayOrder, true), nil
}

// reorder patches each item in turn. The first failure stops the batch and
// is reported with how many items were already applied.
func (s *Store) reorder(ctx context.Context, table string, items []models.ReorderItem) error {
	for i, item := range items {
		payload := map[string]any{"display_order": item.DisplayOrder}
		if _, err := s.makeRequest(ctx, http.MethodPatch, table, byUUID(item.UUID), payload, preferMinimal); err != nil {
			s.logger.Error("Reorder stopped", zap.String("table", table), zap.Int("applied", i), zap.Error(err))
			return &store.PartialError{Applied: i, Total: len(items), Failed: item.UUID, Err: err}
		}
	}
	s.logger.Info("Reordered", zap.String("table", table), zap.Int("count", len(items)))
	return nil
}

// remove hard-deletes one row, reporting notFound when nothing matched
func (s *Store) remove(ctx context.Context, table, uuid, notFound string) error {
	var rows []json.RawMessage
	if err := s.write(ctx, http.MethodDelete, table, byUUID(uuid), nil, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return apperr.NotFound("%s", notFound)
	}
	return nil
}
