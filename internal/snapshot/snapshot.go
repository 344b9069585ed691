// Package snapshot сохраняет и загружает локальный снимок состояния хранилища
// подписок в версионированном JSON-конверте {version, state}.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/sublist/internal/lib/sl"
	"github.com/magabrotheeeer/sublist/internal/models"
	services "github.com/magabrotheeeer/sublist/internal/services/subscription"
)

// CurrentVersion текущая версия формата снимка.
const CurrentVersion = 2

var (
	// ErrNoSnapshot возвращается бэкендом, если снимок ещё не сохранялся.
	ErrNoSnapshot = errors.New("snapshot not found")
	// ErrUnsupportedVersion возвращается для версий новее CurrentVersion.
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
)

// Backend место хранения сериализованного снимка.
type Backend interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}

type envelope struct {
	Version int             `json:"version"`
	State   json.RawMessage `json:"state"`
}

// Snapshotter читает и пишет снимок через Backend.
type Snapshotter struct {
	backend Backend
	log     *slog.Logger
}

// New создает новый экземпляр Snapshotter.
func New(backend Backend, log *slog.Logger) *Snapshotter {
	return &Snapshotter{backend: backend, log: log}
}

// Load загружает снимок. Отсутствующий, повреждённый или неподдерживаемый
// снимок даёт пустое состояние.
func (s *Snapshotter) Load(ctx context.Context) services.State {
	const op = "snapshot.Load"
	log := s.log.With(slog.String("op", op))

	data, err := s.backend.Read(ctx)
	if errors.Is(err, ErrNoSnapshot) {
		log.Debug("no snapshot yet, starting empty")
		return emptyState()
	}
	if err != nil {
		log.Error("failed to read snapshot, starting empty", sl.Err(err))
		return emptyState()
	}

	st, err := Decode(data)
	if err != nil {
		log.Error("snapshot is corrupted, starting empty", sl.Err(err))
		return emptyState()
	}
	log.Info("snapshot loaded", slog.Int("subscriptions", len(st.Subscriptions)))
	return st
}

// Save перезаписывает снимок целиком.
func (s *Snapshotter) Save(ctx context.Context, st services.State) error {
	const op = "snapshot.Save"
	data, err := Encode(st)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.backend.Write(ctx, data); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Listener возвращает слушателя хранилища, сохраняющего каждое новое состояние.
func (s *Snapshotter) Listener(ctx context.Context) services.Listener {
	return func(st services.State) {
		if err := s.Save(ctx, st); err != nil {
			s.log.Error("failed to persist snapshot", sl.Err(err))
		}
	}
}

// Encode сериализует состояние в конверт текущей версии.
func Encode(st services.State) ([]byte, error) {
	if st.Subscriptions == nil {
		st.Subscriptions = []models.Subscription{}
	}
	state, err := json.Marshal(st)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Version: CurrentVersion, State: state})
}

// Decode разбирает конверт любой известной версии и приводит его к текущей.
func Decode(data []byte) (services.State, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return services.State{}, err
	}
	if env.Version > CurrentVersion || env.Version < 0 {
		return services.State{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.Version)
	}
	if len(env.State) == 0 || bytes.Equal(env.State, []byte("null")) {
		return emptyState(), nil
	}

	raw := env.State
	if env.Version < CurrentVersion {
		var err error
		raw, err = migrate(env.Version, raw)
		if err != nil {
			return services.State{}, err
		}
	}

	var st services.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return services.State{}, err
	}
	if st.Subscriptions == nil {
		st.Subscriptions = emptyState().Subscriptions
	}
	return st, nil
}

func emptyState() services.State {
	return services.State{Subscriptions: []models.Subscription{}}
}
