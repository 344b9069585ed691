package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/sublist/internal/models"
)

// fakePostgREST хранит строки таблиц и отвечает как PostgREST на простые фильтры eq.
type fakePostgREST struct {
	mu      sync.Mutex
	tables  map[string][]map[string]any
	signOut []string
}

func newFakePostgREST() *fakePostgREST {
	return &fakePostgREST{tables: map[string][]map[string]any{}}
}

func (f *fakePostgREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Path == "/auth/v1/logout" {
		f.signOut = append(f.signOut, strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		w.WriteHeader(http.StatusNoContent)
		return
	}

	table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
	filters := map[string]string{}
	for key, values := range r.URL.Query() {
		if v, ok := strings.CutPrefix(values[0], "eq."); ok {
			filters[key] = v
		}
	}
	match := func(row map[string]any) bool {
		for k, v := range filters {
			if row[k] != v {
				return false
			}
		}
		return true
	}

	var out []map[string]any
	switch r.Method {
	case http.MethodGet:
		for _, row := range f.tables[table] {
			if match(row) {
				out = append(out, row)
			}
		}
	case http.MethodPost:
		body, _ := io.ReadAll(r.Body)
		var rows []map[string]any
		if err := json.Unmarshal(body, &rows); err != nil {
			var single map[string]any
			if err := json.Unmarshal(body, &single); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			rows = []map[string]any{single}
		}
		f.tables[table] = append(f.tables[table], rows...)
		out = rows
	case http.MethodPatch:
		var patch map[string]any
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, row := range f.tables[table] {
			if match(row) {
				for k, v := range patch {
					row[k] = v
				}
				out = append(out, row)
			}
		}
	case http.MethodDelete:
		var kept []map[string]any
		for _, row := range f.tables[table] {
			if match(row) {
				out = append(out, row)
			} else {
				kept = append(kept, row)
			}
		}
		f.tables[table] = kept
	}

	if out == nil {
		out = []map[string]any{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (f *fakePostgREST) rows(table string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.tables[table]...)
}

func setupClient(t *testing.T) (*Client, *fakePostgREST) {
	fake := newFakePostgREST()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return New(srv.URL, "anon-key"), fake
}

func record(name string, createdAt time.Time) models.Subscription {
	return models.Subscription{
		ID:            models.NewTemporaryID(),
		ServiceName:   name,
		Categories:    []models.Category{models.CategoryOTT},
		BillingDate:   "매달 15일",
		Price:         17000,
		PaymentMethod: "카드",
		Status:        models.StatusActive,
		CreatedAt:     createdAt,
	}
}

func TestClient_InsertAndQuery(t *testing.T) {
	client, fake := setupClient(t)
	ctx := context.Background()
	base := time.Date(2025, time.October, 1, 9, 0, 0, 0, time.UTC)

	saved, err := client.Insert(ctx, []models.Subscription{
		record("Netflix", base),
		record("Spotify", base.Add(time.Hour)),
	}, "user-1")
	require.NoError(t, err)
	require.Len(t, saved, 2)
	for _, s := range saved {
		assert.False(t, s.ID.IsTemporary())
		assert.Equal(t, models.Account("user-1"), s.Owner)
	}
	assert.Len(t, fake.rows(subscriptionsTable), 2)

	got, err := client.Query(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Spotify", got[0].ServiceName)
	assert.Equal(t, []models.Category{models.CategoryOTT}, got[1].Categories)

	none, err := client.Query(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestClient_UpdateAndDelete(t *testing.T) {
	client, _ := setupClient(t)
	ctx := context.Background()

	saved, err := client.Insert(ctx, []models.Subscription{record("Netflix", time.Now())}, "user-1")
	require.NoError(t, err)
	id := saved[0].ID

	disabled := models.StatusDisabled
	require.NoError(t, client.Update(ctx, id, models.Patch{Status: &disabled}))
	assert.ErrorIs(t, client.Update(ctx, "missing", models.Patch{Status: &disabled}), ErrNotFound)
	assert.ErrorIs(t, client.Update(ctx, models.NewTemporaryID(), models.Patch{Status: &disabled}), models.ErrTemporaryID)
	assert.NoError(t, client.Update(ctx, id, models.Patch{}))

	got, err := client.Query(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.StatusDisabled, got[0].Status)

	active, err := client.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	require.NoError(t, client.Delete(ctx, id))
	assert.ErrorIs(t, client.Delete(ctx, id), ErrNotFound)
}

func TestClient_BulkDelete(t *testing.T) {
	client, fake := setupClient(t)
	ctx := context.Background()

	_, err := client.Insert(ctx, []models.Subscription{record("Netflix", time.Now()), record("Wavve", time.Now())}, "user-1")
	require.NoError(t, err)
	_, err = client.Insert(ctx, []models.Subscription{record("Tving", time.Now())}, "user-2")
	require.NoError(t, err)

	require.NoError(t, client.BulkDelete(ctx, "user-1"))

	rows := fake.rows(subscriptionsTable)
	require.Len(t, rows, 1)
	assert.Equal(t, "user-2", rows[0]["user_id"])
}

func TestClient_PushEndpoints(t *testing.T) {
	client, fake := setupClient(t)
	ctx := context.Background()
	endpoint := "https://fcm.googleapis.com/fcm/send/abc"

	require.NoError(t, client.UpsertPushEndpoint(ctx, models.PushEndpoint{
		Owner: models.Account("user-1"), Endpoint: endpoint, Keys: models.PushKeys{P256dh: "old", Auth: "old"},
	}))
	require.NoError(t, client.UpsertPushEndpoint(ctx, models.PushEndpoint{
		Owner: models.Account("user-1"), Endpoint: endpoint, Keys: models.PushKeys{P256dh: "new", Auth: "new"},
	}))
	assert.Len(t, fake.rows(pushTable), 1)

	eps, err := client.ListPushEndpoints(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, eps, 1)
	assert.Equal(t, "new", eps[0].Keys.P256dh)

	require.NoError(t, client.DeletePushEndpoint(ctx, eps[0].ID))
	assert.Empty(t, fake.rows(pushTable))

	assert.Error(t, client.UpsertPushEndpoint(ctx, models.PushEndpoint{Owner: models.LocalOnly(), Endpoint: endpoint}))
}

func TestClient_SignOut(t *testing.T) {
	client, fake := setupClient(t)

	require.NoError(t, client.SignOut(context.Background(), "access-token"))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, []string{"access-token"}, fake.signOut)
}

func TestClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"boom","code":"500"}`))
	}))
	defer srv.Close()
	client := New(srv.URL, "anon-key")

	_, err := client.Query(context.Background(), "user-1")
	assert.Error(t, err)
	assert.Error(t, client.BulkDelete(context.Background(), "user-1"))
}
