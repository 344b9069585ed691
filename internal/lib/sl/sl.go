// Package sl содержит вспомогательные функции для работы с логгером slog.
// Основная цель: единообразные структурированные поля лога для ошибок,
// владельцев записей и идентификаторов подписок.
package sl

import (
	"log/slog"

	"github.com/magabrotheeeer/sublist/internal/models"
)

// Err возвращает slog.Attr с ключом "error" и текстом ошибки.
// Для nil возвращает пустую строку, чтобы логирование не паниковало.
//
// Пример:
//
//	log.Error("remote update failed", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Owner возвращает slog.Attr с владельцем записи.
func Owner(o models.Owner) slog.Attr {
	return slog.String("owner", o.String())
}

// ID возвращает slog.Attr с идентификатором подписки.
func ID(id models.ID) slog.Attr {
	return slog.String("id", string(id))
}
