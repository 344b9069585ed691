package create

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/sublist/internal/models"
	subservice "github.com/magabrotheeeer/sublist/internal/services/subscription"
)

// MockService реализует интерфейс create.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Create(ctx context.Context, draft models.Draft) subservice.Result {
	args := m.Called(ctx, draft)
	return args.Get(0).(subservice.Result)
}

func (m *MockService) Subscriptions() []models.Subscription {
	args := m.Called()
	return args.Get(0).([]models.Subscription)
}

func TestCreateHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	created := models.Subscription{
		ID:          "tmp_1",
		ServiceName: "Netflix",
		Categories:  []models.Category{models.CategoryOTT},
		BillingDate: "매달 15일",
		Price:       17000,
		Status:      models.StatusActive,
	}
	valid := models.Draft{
		ServiceName: "Netflix",
		Categories:  []models.Category{models.CategoryOTT},
		BillingDay:  15,
		Price:       17000,
	}

	tests := []struct {
		name           string
		requestBody    any
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:        "успешное создание подписки",
			requestBody: valid,
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, valid).Return(subservice.Result{Subscription: &created})
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"service_name":"Netflix"`,
		},
		{
			name:           "некорректный JSON",
			requestBody:    "not a json",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid request body"}`,
		},
		{
			name: "ошибка валидации",
			requestBody: models.Draft{
				Categories: []models.Category{"Games"},
				BillingDay: 32,
			},
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody: `{"status":"Error","error":"field ServiceName is a required field, ` +
				`field Categories[0] must be one of [OTT Work Music Shopping Cloud Etc], field BillingDay must be at most 31"}`,
		},
		{
			name: "название из одних служебных символов",
			requestBody: models.Draft{
				ServiceName: "<>",
				Categories:  []models.Category{models.CategoryOTT},
				BillingDay:  15,
			},
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","error":"field ServiceName is a required field"}`,
		},
		{
			name:        "удалённое хранилище отклонило запись",
			requestBody: valid,
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, valid).Return(subservice.Result{Err: errors.New("insert failed")})
				m.On("Subscriptions").Return([]models.Subscription{})
			},
			expectedStatus: http.StatusBadGateway,
			expectedBody:   `"error":"could not save subscription"`,
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
			req := httptest.NewRequest(http.MethodPost, "/subscriptions", bytes.NewReader(body))
			w := httptest.NewRecorder()

			New(logger, service).ServeHTTP(w, req)

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
