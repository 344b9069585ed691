package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/sublist/internal/cache"
	"github.com/magabrotheeeer/sublist/internal/config"
	"github.com/magabrotheeeer/sublist/internal/models"
)

type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) ListActive(ctx context.Context) ([]models.Subscription, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Subscription), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, msg models.PushMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func owned(id, owner string, day int) models.Subscription {
	s := sub(id, day, 1000)
	s.Owner = models.Account(owner)
	return s
}

func newTestMarker(t *testing.T) *cache.Cache {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	c, err := cache.InitServer(context.Background(), config.RedisConnection{RedisAddress: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func newTestScheduler(repo SubscriptionRepository, publisher Publisher, marker Marker) *SchedulerService {
	s := NewSchedulerService(repo, publisher, marker, kst, time.Hour, newNoopLogger())
	s.now = func() time.Time { return time.Date(2025, time.October, 16, 0, 30, 0, 0, time.UTC) }
	return s
}

func TestSchedulerService_RunOnce_TableTests(t *testing.T) {
	local := sub("local", 16, 1000)
	local.Owner = models.LocalOnly()

	tests := []struct {
		name          string
		setupMocks    func(r *MockSubscriptionRepository, p *MockPublisher)
		wantPublished int
		wantErr       bool
	}{
		{
			name: "one digest per owner",
			setupMocks: func(r *MockSubscriptionRepository, p *MockPublisher) {
				r.On("ListActive", mock.Anything).Return([]models.Subscription{
					owned("a", "user-1", 16),
					owned("b", "user-1", 17),
					owned("c", "user-2", 17),
					owned("d", "user-3", 25),
					local,
				}, nil).Once()
				p.On("Publish", mock.Anything, models.PushMessage{
					OwnerID: "user-1",
					Payload: models.PushPayload{Title: "구독 결제 예정 알림", Body: "오늘 1건, 내일 1건의 결제가 예정되어 있습니다.", URL: CalendarURL},
				}).Return(nil).Once()
				p.On("Publish", mock.Anything, models.PushMessage{
					OwnerID: "user-2",
					Payload: models.PushPayload{Title: "구독 결제 예정 알림", Body: "내일 service-c 결제 예정", URL: CalendarURL},
				}).Return(nil).Once()
			},
			wantPublished: 2,
		},
		{
			name: "publish error skips owner",
			setupMocks: func(r *MockSubscriptionRepository, p *MockPublisher) {
				r.On("ListActive", mock.Anything).Return([]models.Subscription{
					owned("a", "user-1", 16),
					owned("c", "user-2", 17),
				}, nil).Once()
				p.On("Publish", mock.Anything, mock.MatchedBy(func(m models.PushMessage) bool { return m.OwnerID == "user-1" })).
					Return(errors.New("channel closed")).Once()
				p.On("Publish", mock.Anything, mock.MatchedBy(func(m models.PushMessage) bool { return m.OwnerID == "user-2" })).
					Return(nil).Once()
			},
			wantPublished: 1,
		},
		{
			name: "repository error",
			setupMocks: func(r *MockSubscriptionRepository, _ *MockPublisher) {
				r.On("ListActive", mock.Anything).Return(nil, errors.New("db down")).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockSubscriptionRepository)
			publisher := new(MockPublisher)
			tt.setupMocks(repo, publisher)

			published, err := newTestScheduler(repo, publisher, nil).RunOnce(context.Background())

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantPublished, published)
			repo.AssertExpectations(t)
			publisher.AssertExpectations(t)
		})
	}
}

func TestSchedulerService_RunOnceSendsOncePerDay(t *testing.T) {
	repo := new(MockSubscriptionRepository)
	publisher := new(MockPublisher)
	repo.On("ListActive", mock.Anything).
		Return([]models.Subscription{owned("a", "user-1", 16)}, nil).Twice()
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()
	marker := newTestMarker(t)
	s := newTestScheduler(repo, publisher, marker)

	first, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	second, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second)
	var sent bool
	found, err := marker.Get(context.Background(), "notified:user-1:2025-10-16", &sent)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, sent)
	publisher.AssertExpectations(t)
}

func TestSchedulerService_RunStopsOnCancel(t *testing.T) {
	repo := new(MockSubscriptionRepository)
	repo.On("ListActive", mock.Anything).Return([]models.Subscription{}, nil)
	s := newTestScheduler(repo, new(MockPublisher), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
