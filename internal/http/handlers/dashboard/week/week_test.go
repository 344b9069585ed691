package week

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/sublist/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Subscriptions() []models.Subscription {
	args := m.Called()
	return args.Get(0).([]models.Subscription)
}

var kst = time.FixedZone("KST", 9*60*60)

func sub(id string, day int, price int64) models.Subscription {
	return models.Subscription{
		ID:          models.ID(id),
		BillingDate: models.FormatBillingDate(day),
		Price:       price,
		Status:      models.StatusActive,
	}
}

func TestWeekHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	now := func() time.Time { return time.Date(2025, time.October, 16, 3, 0, 0, 0, kst) }
	disabled := sub("disabled", 14, 700)
	disabled.Status = models.StatusDisabled

	service := new(MockService)
	service.On("Subscriptions").Return([]models.Subscription{
		sub("sun", 19, 300),
		sub("mon", 13, 100),
		sub("next-week", 20, 900),
		disabled,
	})

	w := httptest.NewRecorder()
	New(logger, service, kst, time.Monday, now).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard/week", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data Week `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.Len(t, resp.Data.Items, 2)
	assert.Equal(t, models.ID("mon"), resp.Data.Items[0].Subscription.ID)
	assert.Equal(t, models.ID("sun"), resp.Data.Items[1].Subscription.ID)
	assert.Equal(t, int64(400), resp.Data.Total)
	assert.True(t, resp.Data.Start.Equal(time.Date(2025, time.October, 13, 0, 0, 0, 0, kst)))
}

func TestWeekHandler_Empty(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	service := new(MockService)
	service.On("Subscriptions").Return([]models.Subscription{})

	w := httptest.NewRecorder()
	New(logger, service, kst, time.Sunday, time.Now).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard/week", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"items":[]`)
	assert.Contains(t, w.Body.String(), `"total":0`)
}
