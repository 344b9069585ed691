// Package models содержит доменные структуры, описывающие подписку,
// владельца записи, push-подписки браузера и вспомогательные типы
// для приёма данных из JSON-запросов.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TemporaryIDPrefix отличает локально сгенерированные ID от ID удалённого хранилища.
const TemporaryIDPrefix = "tmp_"

// DefaultPaymentMethod подставляется, если способ оплаты не указан.
const DefaultPaymentMethod = "미지정"

var (
	// ErrTemporaryID возвращается, когда временный ID попадает в удалённое хранилище.
	ErrTemporaryID = errors.New("temporary id must not reach the remote store")
	// ErrUnknownStatus возвращается при разборе неизвестного статуса.
	ErrUnknownStatus = errors.New("unknown subscription status")
)

// ID идентификатор подписки. Временные ID имеют префикс TemporaryIDPrefix.
type ID string

// NewTemporaryID генерирует локальный ID до подтверждения удалённым хранилищем.
func NewTemporaryID() ID {
	return ID(TemporaryIDPrefix + uuid.NewString())
}

// IsTemporary сообщает, выдан ли ID локально.
func (id ID) IsTemporary() bool {
	return strings.HasPrefix(string(id), TemporaryIDPrefix)
}

func (id ID) String() string {
	return string(id)
}

// Status статус подписки. Только active участвует в расчётах и уведомлениях.
type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
)

// ParseStatus разбирает статус, включая устаревшее значение "disable".
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active":
		return StatusActive, nil
	case "disabled", "disable":
		return StatusDisabled, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// UnmarshalJSON принимает и старое написание "disable".
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*s = ""
		return nil
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Subscription основная модель подписки, используемая в хранилище состояния,
// удалённом хранилище и расчётах дат оплаты.
type Subscription struct {
	ID            ID         `json:"id"`
	Owner         Owner      `json:"owner"`
	ServiceName   string     `json:"service_name"`
	Categories    []Category `json:"categories"`
	BillingDate   string     `json:"billing_date"` // шаблон "매달 N일"
	Price         int64      `json:"price"`
	PaymentMethod string     `json:"payment_method"`
	Status        Status     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
}

// IsActive сообщает, участвует ли подписка в расчётах.
func (s Subscription) IsActive() bool {
	return s.Status == StatusActive
}

// PrimaryCategory возвращает первую категорию, по которой группируются расходы.
func (s Subscription) PrimaryCategory() Category {
	if len(s.Categories) == 0 {
		return CategoryEtc
	}
	return s.Categories[0]
}

// BillingDay извлекает день оплаты из BillingDate.
// ok == false, если в строке нет цифр или день вне диапазона 1–31.
func (s Subscription) BillingDay() (int, bool) {
	return ParseBillingDay(s.BillingDate)
}

// Clone возвращает копию без общих срезов.
func (s Subscription) Clone() Subscription {
	c := s
	c.Categories = append([]Category(nil), s.Categories...)
	return c
}

var digitsRe = regexp.MustCompile(`\d+`)

// ParseBillingDay извлекает первое число из строки вида "매달 15일" или
// "every month, day 15".
func ParseBillingDay(billingDate string) (int, bool) {
	match := digitsRe.FindString(billingDate)
	if match == "" {
		return 0, false
	}
	day, err := strconv.Atoi(match)
	if err != nil || day < 1 || day > 31 {
		return 0, false
	}
	return day, true
}

// FormatBillingDate собирает строку хранения из дня оплаты.
func FormatBillingDate(day int) string {
	return fmt.Sprintf("매달 %d일", day)
}

// CloneAll копирует список подписок.
func CloneAll(subs []Subscription) []Subscription {
	if subs == nil {
		return nil
	}
	out := make([]Subscription, len(subs))
	for i, s := range subs {
		out[i] = s.Clone()
	}
	return out
}
