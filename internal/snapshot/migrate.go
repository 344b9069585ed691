package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/magabrotheeeer/sublist/internal/models"
)

// legacyLocalOwner значение владельца в снимках до версии 2.
const legacyLocalOwner = "local"

type migration func(state map[string]any) error

// migrations[v] переводит состояние версии v в версию v+1.
var migrations = []migration{
	migrateCategories,
	migrateOwner,
}

func migrate(from int, raw json.RawMessage) (json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var state map[string]any
	if err := dec.Decode(&state); err != nil {
		return nil, fmt.Errorf("decode v%d state: %w", from, err)
	}
	for v := from; v < CurrentVersion; v++ {
		if err := migrations[v](state); err != nil {
			return nil, fmt.Errorf("migrate v%d to v%d: %w", v, v+1, err)
		}
	}
	return json.Marshal(state)
}

// migrateCategories v0 -> v1: строка category превращается в список categories.
func migrateCategories(state map[string]any) error {
	return eachSubscription(state, func(sub map[string]any) error {
		var categories []any
		switch c := sub["category"].(type) {
		case string:
			if c != "" {
				categories = []any{c}
			}
		}
		if categories == nil {
			if existing, ok := sub["categories"].([]any); ok {
				categories = existing
			}
		}
		if len(categories) == 0 {
			categories = []any{string(models.CategoryEtc)}
		}
		sub["categories"] = categories
		delete(sub, "category")
		return nil
	})
}

// migrateOwner v1 -> v2: строковые владельцы превращаются в Owner,
// плоские флаги интерфейса переезжают в preferences.
func migrateOwner(state map[string]any) error {
	ownerRaw, _ := state["owner"].(string)
	if ownerRaw == "" {
		ownerRaw, _ = state["userId"].(string)
	}
	state["owner"] = legacyOwner(ownerRaw)
	delete(state, "userId")

	prefs := map[string]any{
		"dark_mode":             state["isDarkMode"] == true,
		"has_seen_tutorial":     state["hasSeenTutorial"] == true,
		"notifications_enabled": state["notificationsEnabled"] == true,
	}
	if last, ok := state["lastNotificationCheck"].(string); ok && last != "" {
		prefs["last_notification_check"] = last
	}
	state["preferences"] = prefs
	for _, k := range []string{"isDarkMode", "hasSeenTutorial", "notificationsEnabled", "lastNotificationCheck"} {
		delete(state, k)
	}

	return eachSubscription(state, func(sub map[string]any) error {
		userID, _ := sub["user_id"].(string)
		owner := legacyOwner(userID)
		sub["owner"] = owner
		delete(sub, "user_id")

		id, err := legacyID(sub["id"])
		if err != nil {
			return err
		}
		if owner["kind"] == legacyLocalOwner && !strings.HasPrefix(id, models.TemporaryIDPrefix) {
			id = models.TemporaryIDPrefix + id
		}
		sub["id"] = id

		if n, ok := sub["price"].(json.Number); ok {
			f, err := n.Float64()
			if err != nil {
				return fmt.Errorf("price %q: %w", n, err)
			}
			sub["price"] = int64(math.Round(f))
		}

		if _, ok := sub["created_at"].(string); !ok {
			delete(sub, "created_at")
		}

		status, _ := sub["status"].(string)
		switch {
		case status == "":
			sub["status"] = string(models.StatusActive)
		default:
			if parsed, err := models.ParseStatus(status); err == nil {
				sub["status"] = string(parsed)
			} else {
				sub["status"] = string(models.StatusDisabled)
			}
		}
		return nil
	})
}

func legacyOwner(v string) map[string]any {
	if v == "" || v == legacyLocalOwner {
		return map[string]any{"kind": legacyLocalOwner}
	}
	return map[string]any{"kind": "account", "id": v}
}

func legacyID(v any) (string, error) {
	switch id := v.(type) {
	case string:
		if id == "" {
			return "", fmt.Errorf("empty subscription id")
		}
		return id, nil
	case json.Number:
		return id.String(), nil
	}
	return "", fmt.Errorf("subscription id has unexpected type %T", v)
}

func eachSubscription(state map[string]any, fn func(sub map[string]any) error) error {
	raw, ok := state["subscriptions"]
	if !ok || raw == nil {
		state["subscriptions"] = []any{}
		return nil
	}
	subs, ok := raw.([]any)
	if !ok {
		return fmt.Errorf("subscriptions has unexpected type %T", raw)
	}
	for i, item := range subs {
		sub, ok := item.(map[string]any)
		if !ok {
			return fmt.Errorf("subscription %d has unexpected type %T", i, item)
		}
		if err := fn(sub); err != nil {
			return fmt.Errorf("subscription %d: %w", i, err)
		}
	}
	return nil
}
