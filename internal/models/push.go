package models

import "time"

// PushKeys ключи шифрования push-подписки браузера.
type PushKeys struct {
	P256dh string `json:"p256dh" validate:"required"`
	Auth   string `json:"auth" validate:"required"`
}

// PushEndpoint зарегистрированная push-подписка браузера пользователя.
// Уникальна по Endpoint.
type PushEndpoint struct {
	ID        string    `json:"id"`
	Owner     Owner     `json:"owner"`
	Endpoint  string    `json:"endpoint"`
	Keys      PushKeys  `json:"keys"`
	CreatedAt time.Time `json:"created_at"`
}

// DummyPushEndpoint используется для приёма push-подписки из JSON-запроса.
type DummyPushEndpoint struct {
	Endpoint string   `json:"endpoint" validate:"required,url"`
	Keys     PushKeys `json:"keys" validate:"required"`
}

// PushPayload полезная нагрузка уведомления для браузера.
type PushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
}

// PushMessage сообщение очереди уведомлений: кому и что отправить.
type PushMessage struct {
	OwnerID string      `json:"owner_id"`
	Payload PushPayload `json:"payload"`
}

// Preferences пользовательские настройки, сохраняемые вместе со снимком состояния.
type Preferences struct {
	DarkMode              bool   `json:"dark_mode"`
	HasSeenTutorial       bool   `json:"has_seen_tutorial"`
	NotificationsEnabled  bool   `json:"notifications_enabled"`
	LastNotificationCheck string `json:"last_notification_check,omitempty"` // YYYY-MM-DD
}
