package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/sublist/internal/models"
)

// UpsertPushEndpoint сохраняет push-подписку браузера. Повторная регистрация
// того же endpoint перезаписывает владельца и ключи.
func (s *Storage) UpsertPushEndpoint(ctx context.Context, ep models.PushEndpoint) error {
	const op = "storage.UpsertPushEndpoint"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	ownerID, ok := ep.Owner.AccountID()
	if !ok {
		return fmt.Errorf("%s: push endpoint without account", op)
	}

	_, err := s.DB.ExecContext(ctx, `INSERT INTO push_subscriptions (user_id, endpoint, p256dh, auth)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (endpoint) DO UPDATE
		SET user_id = EXCLUDED.user_id, p256dh = EXCLUDED.p256dh, auth = EXCLUDED.auth`,
		ownerID, ep.Endpoint, ep.Keys.P256dh, ep.Keys.Auth)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListPushEndpoints возвращает зарегистрированные браузеры владельца.
func (s *Storage) ListPushEndpoints(ctx context.Context, ownerID string) ([]models.PushEndpoint, error) {
	const op = "storage.ListPushEndpoints"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT id::text, user_id, endpoint, p256dh, auth, created_at
		FROM push_subscriptions
		WHERE user_id = $1
		ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := []models.PushEndpoint{}
	for rows.Next() {
		var ep models.PushEndpoint
		var owner string
		if err := rows.Scan(&ep.ID, &owner, &ep.Endpoint, &ep.Keys.P256dh, &ep.Keys.Auth, &ep.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ep.Owner = models.Account(owner)
		out = append(out, ep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// DeletePushEndpoint удаляет push-подписку по ID.
func (s *Storage) DeletePushEndpoint(ctx context.Context, id string) error {
	const op = "storage.DeletePushEndpoint"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if _, err := s.DB.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE id::text = $1`, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
