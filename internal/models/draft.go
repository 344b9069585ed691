package models

import (
	"strings"
	"time"
)

var sanitizer = strings.NewReplacer("<", "", ">", "", `"`, "", "'", "", "`", "")

// Sanitize убирает символы <, >, ", ', ` из пользовательского ввода.
func Sanitize(s string) string {
	return strings.TrimSpace(sanitizer.Replace(s))
}

// Draft используется для приёма данных новой подписки из JSON-запроса,
// до присвоения ID и владельца.
type Draft struct {
	ServiceName   string     `json:"service_name" validate:"required,max=30"`
	Categories    []Category `json:"categories" validate:"required,min=1,max=6,unique,dive,oneof=OTT Work Music Shopping Cloud Etc"`
	BillingDay    int        `json:"billing_day" validate:"required,min=1,max=31"`
	Price         int64      `json:"price" validate:"min=0"`
	PaymentMethod string     `json:"payment_method" validate:"max=30"`
	Status        Status     `json:"status" validate:"omitempty,oneof=active disabled"`
}

// Normalize очищает строковые поля.
func (d Draft) Normalize() Draft {
	d.ServiceName = Sanitize(d.ServiceName)
	d.PaymentMethod = Sanitize(d.PaymentMethod)
	d.Categories = append([]Category(nil), d.Categories...)
	return d
}

// Build собирает подписку из черновика.
func (d Draft) Build(id ID, owner Owner, now time.Time) Subscription {
	payment := d.PaymentMethod
	if payment == "" {
		payment = DefaultPaymentMethod
	}
	status := d.Status
	if status == "" {
		status = StatusActive
	}
	categories := append([]Category(nil), d.Categories...)
	if len(categories) == 0 {
		categories = []Category{CategoryEtc}
	}
	return Subscription{
		ID:            id,
		Owner:         owner,
		ServiceName:   d.ServiceName,
		Categories:    categories,
		BillingDate:   FormatBillingDate(d.BillingDay),
		Price:         d.Price,
		PaymentMethod: payment,
		Status:        status,
		CreatedAt:     now,
	}
}

// Patch частичное изменение подписки: применяются только заданные поля.
type Patch struct {
	ServiceName   *string    `json:"service_name,omitempty" validate:"omitempty,min=1,max=30"`
	Categories    []Category `json:"categories,omitempty" validate:"omitempty,min=1,max=6,unique,dive,oneof=OTT Work Music Shopping Cloud Etc"`
	BillingDay    *int       `json:"billing_day,omitempty" validate:"omitempty,min=1,max=31"`
	Price         *int64     `json:"price,omitempty" validate:"omitempty,min=0"`
	PaymentMethod *string    `json:"payment_method,omitempty" validate:"omitempty,max=30"`
	Status        *Status    `json:"status,omitempty" validate:"omitempty,oneof=active disabled"`
}

// Normalize очищает строковые поля.
func (p Patch) Normalize() Patch {
	if p.ServiceName != nil {
		v := Sanitize(*p.ServiceName)
		p.ServiceName = &v
	}
	if p.PaymentMethod != nil {
		v := Sanitize(*p.PaymentMethod)
		p.PaymentMethod = &v
	}
	return p
}

// IsEmpty сообщает, что патч ничего не меняет.
func (p Patch) IsEmpty() bool {
	return p.ServiceName == nil && len(p.Categories) == 0 && p.BillingDay == nil &&
		p.Price == nil && p.PaymentMethod == nil && p.Status == nil
}

// Apply возвращает копию подписки с применённым патчем.
func (p Patch) Apply(s Subscription) Subscription {
	out := s.Clone()
	if p.ServiceName != nil {
		out.ServiceName = *p.ServiceName
	}
	if len(p.Categories) > 0 {
		out.Categories = append([]Category(nil), p.Categories...)
	}
	if p.BillingDay != nil {
		out.BillingDate = FormatBillingDate(*p.BillingDay)
	}
	if p.Price != nil {
		out.Price = *p.Price
	}
	if p.PaymentMethod != nil {
		out.PaymentMethod = *p.PaymentMethod
		if out.PaymentMethod == "" {
			out.PaymentMethod = DefaultPaymentMethod
		}
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	return out
}

// Columns возвращает изменяемые колонки удалённого хранилища.
func (p Patch) Columns() map[string]any {
	cols := make(map[string]any)
	if p.ServiceName != nil {
		cols["service_name"] = *p.ServiceName
	}
	if len(p.Categories) > 0 {
		cols["categories"] = p.Categories
	}
	if p.BillingDay != nil {
		cols["billing_date"] = FormatBillingDate(*p.BillingDay)
	}
	if p.Price != nil {
		cols["price"] = *p.Price
	}
	if p.PaymentMethod != nil {
		v := *p.PaymentMethod
		if v == "" {
			v = DefaultPaymentMethod
		}
		cols["payment_method"] = v
	}
	if p.Status != nil {
		cols["status"] = string(*p.Status)
	}
	return cols
}
