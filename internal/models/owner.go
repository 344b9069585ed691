package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidOwner возвращается при разборе некорректного владельца.
var ErrInvalidOwner = errors.New("invalid owner")

const (
	ownerKindAccount = "account"
	ownerKindLocal   = "local"
)

// Owner владелец записи: аккаунт с ID либо локальная сессия без входа.
// Нулевое значение соответствует LocalOnly.
type Owner struct {
	accountID string
}

// Account возвращает владельца-аккаунт.
func Account(id string) Owner {
	return Owner{accountID: id}
}

// LocalOnly возвращает владельца для записей, созданных без авторизации.
func LocalOnly() Owner {
	return Owner{}
}

// IsLocal сообщает, принадлежит ли запись локальной сессии.
func (o Owner) IsLocal() bool {
	return o.accountID == ""
}

// AccountID возвращает ID аккаунта, ok == false для LocalOnly.
func (o Owner) AccountID() (string, bool) {
	return o.accountID, o.accountID != ""
}

func (o Owner) String() string {
	if o.IsLocal() {
		return ownerKindLocal
	}
	return ownerKindAccount + ":" + o.accountID
}

type ownerJSON struct {
	Kind string `json:"kind"`
	ID   string `json:"id,omitempty"`
}

// MarshalJSON кодирует владельца как {"kind":"account","id":"..."} или {"kind":"local"}.
func (o Owner) MarshalJSON() ([]byte, error) {
	if o.IsLocal() {
		return json.Marshal(ownerJSON{Kind: ownerKindLocal})
	}
	return json.Marshal(ownerJSON{Kind: ownerKindAccount, ID: o.accountID})
}

// UnmarshalJSON разбирает формат MarshalJSON.
func (o *Owner) UnmarshalJSON(data []byte) error {
	var raw ownerJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOwner, err)
	}
	switch raw.Kind {
	case ownerKindLocal:
		*o = LocalOnly()
	case ownerKindAccount:
		if raw.ID == "" {
			return fmt.Errorf("%w: account without id", ErrInvalidOwner)
		}
		*o = Account(raw.ID)
	default:
		return fmt.Errorf("%w: kind %q", ErrInvalidOwner, raw.Kind)
	}
	return nil
}

// AccountInfo данные авторизованного пользователя внешнего сервиса.
type AccountInfo struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Owner возвращает владельца для записей этого аккаунта.
func (a AccountInfo) Owner() Owner {
	return Account(a.ID)
}
