package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/sublist/internal/migrations"
	"github.com/magabrotheeeer/sublist/internal/models"
)

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateSubscription создает тестовую подписку и возвращает её ID
func (f *TestDataFactory) CreateSubscription(t *testing.T, ownerID, serviceName string, day int, price int64,
	status models.Status, createdAt time.Time) models.ID {
	var id string
	err := f.storage.DB.QueryRow(`INSERT INTO subscriptions
		(user_id, service_name, categories, billing_date, price, payment_method, status, created_at)
		VALUES ($1, $2, '["OTT"]', $3, $4, '카드', $5, $6) RETURNING id::text`,
		ownerID, serviceName, models.FormatBillingDate(day), price, string(status), createdAt).Scan(&id)
	require.NoError(t, err)
	return models.ID(id)
}

// CreatePushEndpoint создает тестовую push-подписку и возвращает её ID
func (f *TestDataFactory) CreatePushEndpoint(t *testing.T, ownerID, endpoint string) string {
	var id string
	err := f.storage.DB.QueryRow(`INSERT INTO push_subscriptions (user_id, endpoint, p256dh, auth)
		VALUES ($1, $2, 'p256dh', 'auth') RETURNING id::text`, ownerID, endpoint).Scan(&id)
	require.NoError(t, err)
	return id
}

// CountSubscriptions возвращает число подписок владельца
func (f *TestDataFactory) CountSubscriptions(t *testing.T, ownerID string) int {
	var n int
	err := f.storage.DB.QueryRow(`SELECT COUNT(*) FROM subscriptions WHERE user_id = $1`, ownerID).Scan(&n)
	require.NoError(t, err)
	return n
}

// setupTestDatabase создает тестовую БД с контейнером PostgreSQL и применяет миграции
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	if os.Getenv("SKIP_POSTGRES_TESTS") == "true" {
		t.Skip("Skipping PostgreSQL tests")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Пробуем подключиться несколько раз с ретраями
	var storage *Storage
	for range 10 {
		storage, err = New(connStr)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	require.NoError(t, err, "Failed to create storage after retries")

	migrationsPath, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath), "Failed to apply migrations")
	require.NoError(t, CheckDatabaseReady(storage))

	cleanup := func() {
		if storage != nil && storage.DB != nil {
			_ = storage.DB.Close()
		}
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return storage, cleanup
}
