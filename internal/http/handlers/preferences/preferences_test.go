package preferences

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/sublist/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Preferences() models.Preferences {
	args := m.Called()
	return args.Get(0).(models.Preferences)
}

func (m *MockService) SetPreferences(p models.Preferences) {
	m.Called(p)
}

func TestUpdate(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	current := models.Preferences{DarkMode: true, LastNotificationCheck: "2025-10-16"}

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
	}{
		{
			name: "включить уведомления",
			body: `{"notifications_enabled":true}`,
			setupMock: func(m *MockService) {
				m.On("Preferences").Return(current)
				m.On("SetPreferences", models.Preferences{
					DarkMode:              true,
					NotificationsEnabled:  true,
					LastNotificationCheck: "2025-10-16",
				}).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "выключить тёмную тему",
			body: `{"dark_mode":false}`,
			setupMock: func(m *MockService) {
				m.On("Preferences").Return(current)
				m.On("SetPreferences", models.Preferences{LastNotificationCheck: "2025-10-16"}).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "некорректный JSON",
			body:           "not a json",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockService)
			tt.setupMock(service)

			w := httptest.NewRecorder()
			New(logger, service).Update(w, httptest.NewRequest(http.MethodPatch, "/preferences", strings.NewReader(tt.body)))

			assert.Equal(t, tt.expectedStatus, w.Code)
			service.AssertExpectations(t)
		})
	}
}

func TestGet(t *testing.T) {
	service := new(MockService)
	service.On("Preferences").Return(models.Preferences{HasSeenTutorial: true})

	w := httptest.NewRecorder()
	New(slog.New(slog.NewTextHandler(io.Discard, nil)), service).Get(w, httptest.NewRequest(http.MethodGet, "/preferences", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"has_seen_tutorial":true`)
}
