package update

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/sublist/internal/models"
	subservice "github.com/magabrotheeeer/sublist/internal/services/subscription"
)

// MockService реализует интерфейс update.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Update(ctx context.Context, id models.ID, patch models.Patch) subservice.Result {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(subservice.Result)
}

func (m *MockService) Subscriptions() []models.Subscription {
	args := m.Called()
	return args.Get(0).([]models.Subscription)
}

func TestUpdateHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	price := int64(9900)
	badDay := 0
	updated := models.Subscription{ID: "abc", ServiceName: "Netflix", Price: price, Status: models.StatusActive}

	tests := []struct {
		name           string
		url            string
		requestBody    any
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:        "успешное обновление подписки",
			url:         "/subscriptions/abc",
			requestBody: map[string]any{"price": price},
			setupMock: func(m *MockService) {
				m.On("Update", mock.Anything, models.ID("abc"), mock.MatchedBy(func(p models.Patch) bool {
					return p.Price != nil && *p.Price == price && p.ServiceName == nil
				})).Return(subservice.Result{Subscription: &updated})
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"price":9900`,
		},
		{
			name:           "некорректный JSON",
			url:            "/subscriptions/abc",
			requestBody:    "not a json",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"failed to decode request"}`,
		},
		{
			name:           "пустой патч",
			url:            "/subscriptions/abc",
			requestBody:    map[string]any{},
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"nothing to update"}`,
		},
		{
			name:           "ошибка валидации",
			url:            "/subscriptions/abc",
			requestBody:    models.Patch{BillingDay: &badDay},
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","error":"field BillingDay must be at least 1"}`,
		},
		{
			name:           "пустое название",
			url:            "/subscriptions/abc",
			requestBody:    map[string]any{"service_name": ""},
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","error":"field ServiceName must be at least 1"}`,
		},
		{
			name:           "название пустое после очистки",
			url:            "/subscriptions/abc",
			requestBody:    map[string]any{"service_name": `'"`},
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","error":"field ServiceName must be at least 1"}`,
		},
		{
			name:        "подписка не найдена",
			url:         "/subscriptions/missing",
			requestBody: map[string]any{"price": price},
			setupMock: func(m *MockService) {
				m.On("Update", mock.Anything, models.ID("missing"), mock.Anything).
					Return(subservice.Result{Err: fmt.Errorf("op: %w", subservice.ErrNotFound)})
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"status":"Error","error":"subscription not found"}`,
		},
		{
			name:        "ошибка удалённого хранилища",
			url:         "/subscriptions/abc",
			requestBody: map[string]any{"price": price},
			setupMock: func(m *MockService) {
				m.On("Update", mock.Anything, models.ID("abc"), mock.Anything).
					Return(subservice.Result{Err: errors.New("remote down")})
				m.On("Subscriptions").Return([]models.Subscription{{ID: "abc", Price: 17000}})
			},
			expectedStatus: http.StatusBadGateway,
			expectedBody:   `"price":17000`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockService)
			tt.setupMock(service)

			var body []byte
			if s, ok := tt.requestBody.(string); ok {
				body = []byte(s)
			} else {
				body, _ = json.Marshal(tt.requestBody)
			}

			router := chi.NewRouter()
			router.Patch("/subscriptions/{id}", New(logger, service).ServeHTTP)

			req := httptest.NewRequest(http.MethodPatch, tt.url, bytes.NewReader(body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if strings.HasPrefix(tt.expectedBody, "{") {
				assert.JSONEq(t, tt.expectedBody, w.Body.String())
			} else {
				assert.Contains(t, w.Body.String(), tt.expectedBody)
			}
			service.AssertExpectations(t)
		})
	}
}
