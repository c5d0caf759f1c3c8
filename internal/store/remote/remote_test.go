package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kutbudev/promptvault/internal/apperr"
	"github.com/kutbudev/promptvault/internal/models"
	"github.com/kutbudev/promptvault/internal/store"
)

const testKey = "test-anon-key"

// fakeRest is an in-memory PostgREST subset: eq / is.null / ilike filters,
// or=(...) of ilike terms, single-key order, limit, offset, representation
// and merge-duplicates preferences.
type fakeRest struct {
	mu       sync.Mutex
	tables   map[string][]map[string]any
	queries  []string
	failWhen func(r *http.Request, body map[string]any) bool
}

func newFakeRest() *fakeRest {
	return &fakeRest{tables: map[string][]map[string]any{
		"schema_version": {{"version": float64(1)}},
	}}
}

func (f *fakeRest) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Header.Get("apikey") != testKey || r.Header.Get("Authorization") != "Bearer "+testKey {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid API key"})
		return
	}

	table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
	q := r.URL.Query()
	f.queries = append(f.queries, r.Method+" "+table+"?"+r.URL.RawQuery)

	var body map[string]any
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	if f.failWhen != nil && f.failWhen(r, body) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"code": "XX000", "message": "injected failure"})
		return
	}

	representation := strings.Contains(r.Header.Get("Prefer"), "return=representation")

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, f.selectRows(table, q))

	case http.MethodPost:
		uuid, _ := body["uuid"].(string)
		for _, row := range f.tables[table] {
			if row["uuid"] == uuid {
				if q.Get("on_conflict") == "uuid" && strings.Contains(r.Header.Get("Prefer"), "merge-duplicates") {
					for k, v := range body {
						row[k] = v
					}
					w.WriteHeader(http.StatusCreated)
					return
				}
				writeJSON(w, http.StatusConflict, map[string]string{
					"code": "23505", "message": "duplicate key value violates unique constraint",
				})
				return
			}
		}
		f.tables[table] = append(f.tables[table], body)
		if representation {
			writeJSON(w, http.StatusCreated, []map[string]any{body})
			return
		}
		w.WriteHeader(http.StatusCreated)

	case http.MethodPatch:
		matched := f.filter(table, q)
		for _, row := range matched {
			for k, v := range body {
				row[k] = v
			}
		}
		if representation {
			writeJSON(w, http.StatusOK, matched)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case http.MethodDelete:
		matched := f.filter(table, q)
		kept := f.tables[table][:0]
		for _, row := range f.tables[table] {
			if !contains(matched, row) {
				kept = append(kept, row)
			}
		}
		f.tables[table] = kept
		if representation {
			writeJSON(w, http.StatusOK, matched)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (f *fakeRest) filter(table string, q url.Values) []map[string]any {
	out := []map[string]any{}
	for _, row := range f.tables[table] {
		if matches(row, q) {
			out = append(out, row)
		}
	}
	return out
}

func (f *fakeRest) selectRows(table string, q url.Values) []map[string]any {
	rows := f.filter(table, q)
	if order := q.Get("order"); order != "" {
		col, dir, _ := strings.Cut(strings.Split(order, ",")[0], ".")
		sort.SliceStable(rows, func(i, j int) bool {
			less := lessValue(rows[i][col], rows[j][col])
			if dir == "desc" {
				return lessValue(rows[j][col], rows[i][col])
			}
			return less
		})
	}
	if off, err := strconv.Atoi(q.Get("offset")); err == nil && off < len(rows) {
		rows = rows[off:]
	} else if err == nil {
		rows = nil
	}
	if lim, err := strconv.Atoi(q.Get("limit")); err == nil && lim < len(rows) {
		rows = rows[:lim]
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return rows
}

func matches(row map[string]any, q url.Values) bool {
	for key, values := range q {
		switch key {
		case "select", "order", "limit", "offset", "on_conflict":
			continue
		case "or":
			inner := strings.TrimSuffix(strings.TrimPrefix(values[0], "("), ")")
			hit := false
			for _, term := range splitTerms(inner) {
				col, pattern, _ := strings.Cut(term, ".ilike.")
				if ilike(row[col], pattern) {
					hit = true
				}
			}
			if !hit {
				return false
			}
			continue
		}
		v := values[0]
		switch {
		case v == "is.null":
			if row[key] != nil {
				return false
			}
		case v == "not.is.null":
			if row[key] == nil {
				return false
			}
		case strings.HasPrefix(v, "eq."):
			if fmt.Sprint(row[key]) != strings.TrimPrefix(v, "eq.") {
				return false
			}
		case strings.HasPrefix(v, "ilike."):
			if !ilike(row[key], strings.TrimPrefix(v, "ilike.")) {
				return false
			}
		}
	}
	return true
}

// splitTerms splits on commas outside double quotes
func splitTerms(s string) []string {
	var (
		out    []string
		cur    strings.Builder
		quoted bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			cur.WriteByte(c)
			cur.WriteByte(s[i+1])
			i++
		case c == '"':
			quoted = !quoted
			cur.WriteByte(c)
		case c == ',' && !quoted:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(out, cur.String())
}

func ilike(v any, pattern string) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	pattern = strings.TrimSuffix(strings.TrimPrefix(pattern, `"`), `"`)
	pattern = strings.Trim(pattern, "*")
	pattern = strings.NewReplacer(`\\\\`, `\`, `\\`, ``, `\"`, `"`).Replace(pattern)
	return strings.Contains(strings.ToLower(s), strings.ToLower(pattern))
}

func lessValue(a, b any) bool {
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		return af < bf
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

func contains(rows []map[string]any, row map[string]any) bool {
	for _, r := range rows {
		if r["uuid"] == row["uuid"] {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestStore(t *testing.T) (*Store, *fakeRest) {
	t.Helper()
	fake := newFakeRest()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s, err := New(Credentials{URL: srv.URL + "/", AnonKey: testKey})
	require.NoError(t, err)
	return s, fake
}

func TestNewValidatesCredentials(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
	}{
		{"missing url", Credentials{AnonKey: "k"}},
		{"relative url", Credentials{URL: "not a url", AnonKey: "k"}},
		{"missing key", Credentials{URL: "https://example.supabase.co"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.creds)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}

	s, err := New(Credentials{URL: "https://example.supabase.co/", AnonKey: "k"}, WithTimeout(5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, "https://example.supabase.co", s.Location())
	assert.Equal(t, 5*time.Second, s.HTTPClient.Timeout)
}

func TestConnect(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds against a healthy server", func(t *testing.T) {
		srv := httptest.NewServer(newFakeRest())
		defer srv.Close()

		s, err := Connect(ctx, Credentials{URL: srv.URL, AnonKey: testKey}, 3)
		require.NoError(t, err)
		assert.NoError(t, s.Close())
	})

	t.Run("gives up after the configured attempts", func(t *testing.T) {
		var calls int
		var mu sync.Mutex
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			calls++
			mu.Unlock()
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "starting up"})
		}))
		defer srv.Close()

		_, err := Connect(ctx, Credentials{URL: srv.URL, AnonKey: testKey}, 2)
		require.Error(t, err)
		assert.ErrorIs(t, err, apperr.ErrStorage)
		assert.Contains(t, err.Error(), "starting up")
		assert.Equal(t, 2, calls)
	})

	t.Run("wrong key is a storage error", func(t *testing.T) {
		srv := httptest.NewServer(newFakeRest())
		defer srv.Close()

		_, err := Connect(ctx, Credentials{URL: srv.URL, AnonKey: "wrong"}, 1)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
		assert.Equal(t, "Invalid API key", apiErr.Message)
	})
}

func TestPromptLifecycle(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	created, err := s.CreatePrompt(ctx, models.CreatePromptPayload{
		Title: " Review ", Content: "Look at {{file}}", Tags: models.StringPtr("go"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Review", created.Title)
	assert.Equal(t, "go", models.Deref(created.Tags))

	got, err := s.GetPrompt(ctx, created.UUID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.CreatedAt, got.CreatedAt)

	updated, err := s.UpdatePrompt(ctx, created.UUID, models.UpdatePromptPayload{Tags: models.StringPtr("  ")})
	require.NoError(t, err)
	assert.Nil(t, updated.Tags)

	same, err := s.UpdatePrompt(ctx, created.UUID, models.UpdatePromptPayload{})
	require.NoError(t, err)
	assert.Equal(t, updated.UpdatedAt, same.UpdatedAt)

	require.NoError(t, s.DeletePrompt(ctx, created.UUID))
	got, err = s.GetPrompt(ctx, created.UUID)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, s.DeletePrompt(ctx, created.UUID), apperr.ErrNotFound)
	deleted, err := s.PromptDeleted(ctx, created.UUID)
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = s.PromptDeleted(ctx, "never-created")
	require.NoError(t, err)
	assert.False(t, deleted)
	_, err = s.UpdatePrompt(ctx, created.UUID, models.UpdatePromptPayload{Title: models.StringPtr("x")})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = s.UpdatePrompt(ctx, created.UUID, models.UpdatePromptPayload{})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestExportReadsEveryPage(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRest()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	s, err := New(Credentials{URL: srv.URL, AnonKey: testKey}, WithPageSize(2))
	require.NoError(t, err)

	for i := range 5 {
		_, err := s.CreatePrompt(ctx, models.CreatePromptPayload{Title: fmt.Sprintf("P%d", i), Content: "x"})
		require.NoError(t, err)
	}

	fake.mu.Lock()
	fake.queries = nil
	fake.mu.Unlock()

	exported, err := s.ExportPrompts(ctx)
	require.NoError(t, err)
	assert.Len(t, exported, 5)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.queries, 3)
	assert.Contains(t, fake.queries[2], "offset=4")
	assert.Contains(t, fake.queries[2], "limit=2")
}

func TestSearchPrompts(t *testing.T) {
	ctx := context.Background()
	s, fake := newTestStore(t)

	for _, p := range []models.CreatePromptPayload{
		{Title: "snake_case helper", Content: "rename", Category: models.StringPtr("dev")},
		{Title: "Email", Content: "reply politely", Tags: models.StringPtr("mail,work")},
	} {
		_, err := s.CreatePrompt(ctx, p)
		require.NoError(t, err)
	}

	res, err := s.SearchPrompts(ctx, models.SearchPromptsParams{Query: "POLITE", Mode: models.SearchFullText})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Email", res[0].Title)

	res, err = s.SearchPrompts(ctx, models.SearchPromptsParams{Query: "e_c"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	last := fake.queries[len(fake.queries)-1]
	unescaped, _ := url.QueryUnescape(last)
	assert.Contains(t, unescaped, `title.ilike."*e\\_c*"`)
	assert.Contains(t, unescaped, "deleted_at=is.null")

	res, err = s.SearchPrompts(ctx, models.SearchPromptsParams{Category: "dev"})
	require.NoError(t, err)
	assert.Len(t, res, 1)

	res, err = s.SearchPrompts(ctx, models.SearchPromptsParams{Tag: "work"})
	require.NoError(t, err)
	assert.Len(t, res, 1)

	all, err := s.SearchPrompts(ctx, models.SearchPromptsParams{})
	require.NoError(t, err)
	list, err := s.ListPrompts(ctx, models.ListPromptsParams{})
	require.NoError(t, err)
	assert.Len(t, all, len(list))
}

func TestGroupsDisplayOrderAndReorder(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.CreateGroup(ctx, models.CreateGroupPayload{CategoryUUID: "missing", Name: "g"})
	assert.Equal(t, "Category not found", apperr.Message(err))

	cat, err := s.CreateCategory(ctx, models.CreateCategoryPayload{Name: "Work"})
	require.NoError(t, err)

	var groups []*models.Group
	for i := 0; i < 3; i++ {
		g, err := s.CreateGroup(ctx, models.CreateGroupPayload{
			CategoryUUID: cat.UUID, Name: fmt.Sprintf("g%d", i),
			GlobalVariables: models.Variables{"team": "core"},
		})
		require.NoError(t, err)
		assert.Equal(t, i, g.DisplayOrder)
		groups = append(groups, g)
	}
	assert.Equal(t, models.Variables{"team": "core"}, groups[0].GlobalVariables)

	require.NoError(t, s.ReorderGroups(ctx, []models.ReorderItem{
		{UUID: groups[2].UUID, DisplayOrder: 0},
		{UUID: groups[0].UUID, DisplayOrder: 2},
		{UUID: "unknown", DisplayOrder: 5},
	}))

	list, err := s.ListGroups(ctx, cat.UUID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"g2", "g1", "g0"}, []string{list[0].Name, list[1].Name, list[2].Name})
}

func TestReorderStopsAtFirstFailure(t *testing.T) {
	ctx := context.Background()
	s, fake := newTestStore(t)

	cat, err := s.CreateCategory(ctx, models.CreateCategoryPayload{Name: "c"})
	require.NoError(t, err)
	var ids []string
	for i := 0; i < 3; i++ {
		g, err := s.CreateGroup(ctx, models.CreateGroupPayload{CategoryUUID: cat.UUID, Name: fmt.Sprintf("g%d", i)})
		require.NoError(t, err)
		ids = append(ids, g.UUID)
	}

	fake.failWhen = func(r *http.Request, _ map[string]any) bool {
		return r.Method == http.MethodPatch && r.URL.Query().Get("uuid") == "eq."+ids[1]
	}

	err = s.ReorderGroups(ctx, []models.ReorderItem{
		{UUID: ids[0], DisplayOrder: 10},
		{UUID: ids[1], DisplayOrder: 11},
		{UUID: ids[2], DisplayOrder: 12},
	})
	var partial *store.PartialError
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, 1, partial.Applied)
	assert.Equal(t, 3, partial.Total)
	assert.Equal(t, ids[1], partial.Failed)
	assert.ErrorIs(t, err, apperr.ErrStorage)

	fake.failWhen = nil
	first, err := s.GetGroup(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, 10, first.DisplayOrder)
	third, err := s.GetGroup(ctx, ids[2])
	require.NoError(t, err)
	assert.Equal(t, 2, third.DisplayOrder)
}

func TestImportAppliesRecordsIndependently(t *testing.T) {
	ctx := context.Background()
	s, fake := newTestStore(t)

	fake.failWhen = func(r *http.Request, body map[string]any) bool {
		return r.Method == http.MethodPost && body["uuid"] == "b"
	}

	records := []models.ImportRecord{
		{UUID: "a", Title: "A", Content: "a", UpdatedAt: "2024-01-01T00:00:00.000Z"},
		{UUID: "b", Title: "B", Content: "b"},
		{UUID: "c", Title: "C", Content: "c", IsFavorite: true},
	}
	stats, err := s.ImportPrompts(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, models.ImportStats{Imported: 2, Skipped: 1}, stats)

	c, err := s.GetPrompt(ctx, "c")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.True(t, c.IsFavorite)

	stats, err = s.ImportPrompts(ctx, records[:1])
	require.NoError(t, err)
	assert.Equal(t, models.ImportStats{Skipped: 1}, stats)

	require.NoError(t, s.DeletePrompt(ctx, "a"))
	stats, err = s.ImportPrompts(ctx, records[:1])
	require.NoError(t, err)
	assert.Equal(t, models.ImportStats{Imported: 1}, stats)
	revived, err := s.GetPrompt(ctx, "a")
	require.NoError(t, err)
	assert.NotNil(t, revived)
}

func TestManagementPromptsAndResults(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	cat, err := s.CreateCategory(ctx, models.CreateCategoryPayload{Name: "c"})
	require.NoError(t, err)
	g, err := s.CreateGroup(ctx, models.CreateGroupPayload{CategoryUUID: cat.UUID, Name: "g"})
	require.NoError(t, err)

	_, err = s.CreateManagementPrompt(ctx, models.CreateManagementPromptPayload{GroupUUID: "nope", Name: "m", Content: "c"})
	assert.Equal(t, "Group not found", apperr.Message(err))

	mp, err := s.CreateManagementPrompt(ctx, models.CreateManagementPromptPayload{GroupUUID: g.UUID, Name: "m", Content: "c"})
	require.NoError(t, err)
	assert.Equal(t, 0, mp.DisplayOrder)

	_, err = s.UpdateManagementPrompt(ctx, mp.UUID, models.UpdateManagementPromptPayload{GroupUUID: models.StringPtr("nope")})
	assert.Equal(t, "Target group not found", apperr.Message(err))

	renamed, err := s.UpdateManagementPrompt(ctx, mp.UUID, models.UpdateManagementPromptPayload{Name: models.StringPtr("renamed")})
	require.NoError(t, err)
	assert.Equal(t, "renamed", renamed.Name)

	_, err = s.CreatePromptResult(ctx, models.CreatePromptResultPayload{PromptUUID: "nope", Content: "r"})
	assert.Equal(t, "ManagementPrompt not found", apperr.Message(err))

	r1, err := s.CreatePromptResult(ctx, models.CreatePromptResultPayload{PromptUUID: mp.UUID, Content: "first"})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	r2, err := s.CreatePromptResult(ctx, models.CreatePromptResultPayload{PromptUUID: mp.UUID, Content: "second"})
	require.NoError(t, err)

	results, err := s.ListPromptResults(ctx, mp.UUID)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, r2.UUID, results[0].UUID)

	require.NoError(t, s.DeletePromptResult(ctx, r1.UUID))
	assert.ErrorIs(t, s.DeletePromptResult(ctx, r1.UUID), apperr.ErrNotFound)
	assert.ErrorIs(t, s.DeleteCategory(ctx, "missing"), apperr.ErrNotFound)
}

func TestDuplicateUUIDIsStorageError(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	const id = "6f0b1c2d-3e4f-4a5b-8c6d-7e8f9a0b1c2d"
	_, err := s.CreateCategory(ctx, models.CreateCategoryPayload{UUID: id, Name: "one"})
	require.NoError(t, err)

	_, err = s.CreateCategory(ctx, models.CreateCategoryPayload{UUID: id, Name: "two"})
	require.ErrorIs(t, err, apperr.ErrStorage)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "23505", apiErr.Code)
}
