// Package supabase реализует удалённое хранилище подписок поверх сервиса
// Supabase: таблицы subscriptions и push_subscriptions через PostgREST,
// выход из сессии через Auth API.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	supa "github.com/nedpals/supabase-go"

	"github.com/magabrotheeeer/sublist/internal/models"
)

const (
	subscriptionsTable = "subscriptions"
	pushTable          = "push_subscriptions"
)

// ErrNotFound возвращается, если запись с указанным ID отсутствует.
var ErrNotFound = errors.New("record not found")

type subscriptionRow struct {
	ID            string            `json:"id,omitempty"`
	UserID        string            `json:"user_id"`
	ServiceName   string            `json:"service_name"`
	Categories    []models.Category `json:"categories"`
	BillingDate   string            `json:"billing_date"`
	Price         int64             `json:"price"`
	PaymentMethod string            `json:"payment_method"`
	Status        string            `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
}

func (r subscriptionRow) subscription() models.Subscription {
	status, err := models.ParseStatus(r.Status)
	if err != nil {
		status = models.StatusDisabled
	}
	categories := r.Categories
	if len(categories) == 0 {
		categories = []models.Category{models.CategoryEtc}
	}
	return models.Subscription{
		ID:            models.ID(r.ID),
		Owner:         models.Account(r.UserID),
		ServiceName:   r.ServiceName,
		Categories:    categories,
		BillingDate:   r.BillingDate,
		Price:         r.Price,
		PaymentMethod: r.PaymentMethod,
		Status:        status,
		CreatedAt:     r.CreatedAt.UTC(),
	}
}

type pushRow struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"user_id"`
	Endpoint  string    `json:"endpoint"`
	P256dh    string    `json:"p256dh"`
	Auth      string    `json:"auth"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Client удалённое хранилище на Supabase.
type Client struct {
	client *supa.Client
	now    func() time.Time
}

// New создает клиента Supabase по адресу проекта и ключу API.
func New(baseURL, apiKey string) *Client {
	return &Client{
		client: supa.CreateClient(baseURL, apiKey),
		now:    time.Now,
	}
}

// Insert сохраняет записи для владельца ownerID. ID выдаются до отправки,
// поэтому порядок и ID ответа совпадают с запросом.
func (c *Client) Insert(ctx context.Context, records []models.Subscription, ownerID string) ([]models.Subscription, error) {
	const op = "supabase.Insert"
	if len(records) == 0 {
		return []models.Subscription{}, nil
	}

	rows := make([]subscriptionRow, 0, len(records))
	for _, rec := range records {
		createdAt := rec.CreatedAt
		if createdAt.IsZero() {
			createdAt = c.now()
		}
		rows = append(rows, subscriptionRow{
			ID:            uuid.NewString(),
			UserID:        ownerID,
			ServiceName:   rec.ServiceName,
			Categories:    rec.Categories,
			BillingDate:   rec.BillingDate,
			Price:         rec.Price,
			PaymentMethod: rec.PaymentMethod,
			Status:        string(rec.Status),
			CreatedAt:     createdAt.UTC(),
		})
	}

	var saved []subscriptionRow
	if err := c.client.DB.From(subscriptionsTable).Insert(rows).ExecuteWithContext(ctx, &saved); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(saved) != len(rows) {
		saved = rows
	}

	out := make([]models.Subscription, 0, len(saved))
	for _, row := range saved {
		out = append(out, row.subscription())
	}
	return out, nil
}

// Update изменяет только поля, заданные в patch.
func (c *Client) Update(ctx context.Context, id models.ID, patch models.Patch) error {
	const op = "supabase.Update"
	if id.IsTemporary() {
		return fmt.Errorf("%s: %w", op, models.ErrTemporaryID)
	}
	cols := patch.Columns()
	if len(cols) == 0 {
		return nil
	}

	var updated []subscriptionRow
	if err := c.client.DB.From(subscriptionsTable).Update(cols).Eq("id", string(id)).ExecuteWithContext(ctx, &updated); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if len(updated) == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// Delete удаляет подписку по ID.
func (c *Client) Delete(ctx context.Context, id models.ID) error {
	const op = "supabase.Delete"
	if id.IsTemporary() {
		return fmt.Errorf("%s: %w", op, models.ErrTemporaryID)
	}

	var deleted []subscriptionRow
	if err := c.client.DB.From(subscriptionsTable).Delete().Eq("id", string(id)).ExecuteWithContext(ctx, &deleted); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if len(deleted) == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// BulkDelete удаляет все подписки владельца.
func (c *Client) BulkDelete(ctx context.Context, ownerID string) error {
	const op = "supabase.BulkDelete"

	var deleted []subscriptionRow
	if err := c.client.DB.From(subscriptionsTable).Delete().Eq("user_id", ownerID).ExecuteWithContext(ctx, &deleted); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Query возвращает подписки владельца, новые первыми.
func (c *Client) Query(ctx context.Context, ownerID string) ([]models.Subscription, error) {
	const op = "supabase.Query"

	var rows []subscriptionRow
	if err := c.client.DB.From(subscriptionsTable).Select("*").Eq("user_id", ownerID).ExecuteWithContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return toSubscriptions(rows), nil
}

// ListActive возвращает активные подписки всех владельцев.
func (c *Client) ListActive(ctx context.Context) ([]models.Subscription, error) {
	const op = "supabase.ListActive"

	var rows []subscriptionRow
	if err := c.client.DB.From(subscriptionsTable).Select("*").Eq("status", string(models.StatusActive)).ExecuteWithContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return toSubscriptions(rows), nil
}

// UpsertPushEndpoint сохраняет push-подписку браузера: прежняя запись с тем же
// endpoint удаляется и вставляется заново.
func (c *Client) UpsertPushEndpoint(ctx context.Context, ep models.PushEndpoint) error {
	const op = "supabase.UpsertPushEndpoint"
	ownerID, ok := ep.Owner.AccountID()
	if !ok {
		return fmt.Errorf("%s: push endpoint without account", op)
	}

	var deleted []pushRow
	if err := c.client.DB.From(pushTable).Delete().Eq("endpoint", ep.Endpoint).ExecuteWithContext(ctx, &deleted); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	id := ep.ID
	if id == "" {
		id = uuid.NewString()
	}
	row := pushRow{
		ID:        id,
		UserID:    ownerID,
		Endpoint:  ep.Endpoint,
		P256dh:    ep.Keys.P256dh,
		Auth:      ep.Keys.Auth,
		CreatedAt: ep.CreatedAt,
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = c.now().UTC()
	}
	var saved []pushRow
	if err := c.client.DB.From(pushTable).Insert(row).ExecuteWithContext(ctx, &saved); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListPushEndpoints возвращает зарегистрированные браузеры владельца.
func (c *Client) ListPushEndpoints(ctx context.Context, ownerID string) ([]models.PushEndpoint, error) {
	const op = "supabase.ListPushEndpoints"

	var rows []pushRow
	if err := c.client.DB.From(pushTable).Select("*").Eq("user_id", ownerID).ExecuteWithContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out := make([]models.PushEndpoint, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.PushEndpoint{
			ID:        r.ID,
			Owner:     models.Account(r.UserID),
			Endpoint:  r.Endpoint,
			Keys:      models.PushKeys{P256dh: r.P256dh, Auth: r.Auth},
			CreatedAt: r.CreatedAt,
		})
	}
	return out, nil
}

// DeletePushEndpoint удаляет push-подписку по ID.
func (c *Client) DeletePushEndpoint(ctx context.Context, id string) error {
	const op = "supabase.DeletePushEndpoint"

	var deleted []pushRow
	if err := c.client.DB.From(pushTable).Delete().Eq("id", id).ExecuteWithContext(ctx, &deleted); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SignOut завершает сессию пользователя в сервисе авторизации.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	const op = "supabase.SignOut"
	if err := c.client.Auth.SignOut(ctx, accessToken); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func toSubscriptions(rows []subscriptionRow) []models.Subscription {
	out := make([]models.Subscription, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.subscription())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
