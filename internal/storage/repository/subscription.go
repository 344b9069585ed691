package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/magabrotheeeer/sublist/internal/models"
)

const subscriptionColumns = `id::text, user_id, service_name, categories, billing_date,
	price, payment_method, status, created_at`

// Insert сохраняет записи для владельца ownerID и возвращает их с ID,
// выданными базой, в том же порядке. Все записи вставляются в одной транзакции.
func (s *Storage) Insert(ctx context.Context, records []models.Subscription, ownerID string) ([]models.Subscription, error) {
	const op = "storage.Insert"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}
	if len(records) == 0 {
		return []models.Subscription{}, nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO subscriptions
			(user_id, service_name, categories, billing_date, price, payment_method, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))
		RETURNING `+subscriptionColumns)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	out := make([]models.Subscription, 0, len(records))
	for _, rec := range records {
		categories, err := json.Marshal(rec.Categories)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		var createdAt any
		if !rec.CreatedAt.IsZero() {
			createdAt = rec.CreatedAt
		}
		saved, err := scanSubscription(stmt.QueryRowContext(ctx,
			ownerID, rec.ServiceName, string(categories), rec.BillingDate, rec.Price,
			rec.PaymentMethod, string(rec.Status), createdAt))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, saved)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// Update изменяет только поля, заданные в patch.
func (s *Storage) Update(ctx context.Context, id models.ID, patch models.Patch) error {
	const op = "storage.Update"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}
	if id.IsTemporary() {
		return fmt.Errorf("%s: %w", op, models.ErrTemporaryID)
	}

	cols := patch.Columns()
	if len(cols) == 0 {
		return nil
	}
	names := lo.Keys(cols)
	sort.Strings(names)

	sets := make([]string, 0, len(names))
	args := make([]any, 0, len(names)+1)
	for i, name := range names {
		value := cols[name]
		if name == "categories" {
			raw, err := json.Marshal(value)
			if err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			value = string(raw)
		}
		sets = append(sets, name+" = $"+strconv.Itoa(i+1))
		args = append(args, value)
	}
	args = append(args, string(id))

	query := `UPDATE subscriptions SET ` + strings.Join(sets, ", ") +
		` WHERE id::text = $` + strconv.Itoa(len(args))
	result, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return expectAffected(op, result)
}

// Delete удаляет подписку по ID.
func (s *Storage) Delete(ctx context.Context, id models.ID) error {
	const op = "storage.Delete"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}
	if id.IsTemporary() {
		return fmt.Errorf("%s: %w", op, models.ErrTemporaryID)
	}

	result, err := s.DB.ExecContext(ctx, `DELETE FROM subscriptions WHERE id::text = $1`, string(id))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return expectAffected(op, result)
}

// BulkDelete удаляет все подписки владельца.
func (s *Storage) BulkDelete(ctx context.Context, ownerID string) error {
	const op = "storage.BulkDelete"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if _, err := s.DB.ExecContext(ctx, `DELETE FROM subscriptions WHERE user_id = $1`, ownerID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Query возвращает подписки владельца, новые первыми.
func (s *Storage) Query(ctx context.Context, ownerID string) ([]models.Subscription, error) {
	const op = "storage.Query"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY created_at DESC, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out, err := collectSubscriptions(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// ListActive возвращает активные подписки всех владельцев для ежедневной рассылки.
func (s *Storage) ListActive(ctx context.Context) ([]models.Subscription, error) {
	const op = "storage.ListActive"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE status = 'active'
		ORDER BY user_id, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out, err := collectSubscriptions(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (models.Subscription, error) {
	var (
		sub        models.Subscription
		id, owner  string
		categories []byte
		status     string
	)
	if err := row.Scan(&id, &owner, &sub.ServiceName, &categories, &sub.BillingDate,
		&sub.Price, &sub.PaymentMethod, &status, &sub.CreatedAt); err != nil {
		return models.Subscription{}, err
	}
	if err := json.Unmarshal(categories, &sub.Categories); err != nil {
		return models.Subscription{}, fmt.Errorf("decode categories of %s: %w", id, err)
	}
	parsed, err := models.ParseStatus(status)
	if err != nil {
		parsed = models.StatusDisabled
	}
	sub.ID = models.ID(id)
	sub.Owner = models.Account(owner)
	sub.Status = parsed
	sub.CreatedAt = sub.CreatedAt.UTC()
	return sub, nil
}

func collectSubscriptions(rows *sql.Rows) ([]models.Subscription, error) {
	defer rows.Close()

	out := []models.Subscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func expectAffected(op string, result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// IsNotFound сообщает, что ошибка означает отсутствие записи.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
