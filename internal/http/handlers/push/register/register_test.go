package register

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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/sublist/internal/http/middlewarectx"
	"github.com/magabrotheeeer/sublist/internal/models"
	pushservice "github.com/magabrotheeeer/sublist/internal/services/push"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Register(ctx context.Context, owner models.Owner, dummy models.DummyPushEndpoint) (models.PushEndpoint, error) {
	args := m.Called(ctx, owner, dummy)
	return args.Get(0).(models.PushEndpoint), args.Error(1)
}

func TestRegisterHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	account := models.AccountInfo{ID: "user-1"}
	valid := models.DummyPushEndpoint{
		Endpoint: "https://push.example.com/send/abc",
		Keys:     models.PushKeys{P256dh: "p256", Auth: "auth"},
	}

	tests := []struct {
		name           string
		requestBody    any
		account        *models.AccountInfo
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:        "успешная регистрация",
			requestBody: valid,
			account:     &account,
			setupMock: func(m *MockService) {
				m.On("Register", mock.Anything, account.Owner(), valid).
					Return(models.PushEndpoint{ID: "ep-1", Owner: account.Owner(), Endpoint: valid.Endpoint, Keys: valid.Keys}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"id":"ep-1"`,
		},
		{
			name:           "некорректный JSON",
			requestBody:    "not a json",
			account:        &account,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid request body"}`,
		},
		{
			name:           "ошибка валидации",
			requestBody:    models.DummyPushEndpoint{Endpoint: "not-url"},
			account:        &account,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody: `{"status":"Error","error":"field Endpoint must be a valid url, ` +
				`field P256dh is a required field, field Auth is a required field"}`,
		},
		{
			name:           "нет аккаунта в контексте",
			requestBody:    valid,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"status":"Error","error":"unauthorized"}`,
		},
		{
			name:        "таймаут хранилища",
			requestBody: valid,
			account:     &account,
			setupMock: func(m *MockService) {
				m.On("Register", mock.Anything, account.Owner(), valid).
					Return(models.PushEndpoint{}, fmt.Errorf("op: %w", pushservice.ErrRegistrationTimeout))
			},
			expectedStatus: http.StatusGatewayTimeout,
			expectedBody:   `{"status":"Error","error":"push registration timed out, please retry"}`,
		},
		{
			name:        "ошибка хранилища",
			requestBody: valid,
			account:     &account,
			setupMock: func(m *MockService) {
				m.On("Register", mock.Anything, account.Owner(), valid).
					Return(models.PushEndpoint{}, errors.New("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"could not register push subscription"}`,
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
			req := httptest.NewRequest(http.MethodPost, "/push/subscriptions", bytes.NewReader(body))
			if tt.account != nil {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.Account, *tt.account))
			}
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
