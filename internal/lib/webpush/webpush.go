// Package webpush предоставляет транспорт для отправки Web Push уведомлений (VAPID).
package webpush

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"github.com/magabrotheeeer/sublist/internal/config"
	"github.com/magabrotheeeer/sublist/internal/models"
)

// ErrRejected возвращается, если push-сервис ответил не 2xx.
var ErrRejected = errors.New("push service rejected notification")

// Sender интерфейс для отправки уведомления на один endpoint.
// Возвращает HTTP-статус ответа push-сервиса.
type Sender interface {
	Send(ctx context.Context, ep models.PushEndpoint, payload []byte) (int, error)
}

// Transport реализует Sender поверх webpush-go.
type Transport struct {
	opts webpush.Options
}

// NewTransport создает транспорт с ключами VAPID из конфига.
// client может быть nil, тогда используется http.DefaultClient.
func NewTransport(cfg config.Push, client webpush.HTTPClient) *Transport {
	return &Transport{
		opts: webpush.Options{
			HTTPClient:      client,
			Subscriber:      cfg.VAPIDSubject,
			VAPIDPublicKey:  cfg.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.VAPIDPrivateKey,
			TTL:             cfg.PushTTL,
		},
	}
}

// Send шифрует payload ключами браузера и отправляет его на endpoint.
func (t *Transport) Send(ctx context.Context, ep models.PushEndpoint, payload []byte) (int, error) {
	const op = "webpush.Send"

	opts := t.opts
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: ep.Endpoint,
		Keys: webpush.Keys{
			Auth:   ep.Keys.Auth,
			P256dh: ep.Keys.P256dh,
		},
	}, &opts)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return resp.StatusCode, fmt.Errorf("%s: %w: status %d", op, ErrRejected, resp.StatusCode)
	}
	return resp.StatusCode, nil
}

// IsGone сообщает, что push-подписка браузера больше не существует
// и её нужно удалить.
func IsGone(status int) bool {
	return status == http.StatusNotFound || status == http.StatusGone
}
