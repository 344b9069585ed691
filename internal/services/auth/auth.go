// Package services содержит логику сессии пользователя: вход через внешний
// сервис авторизации, проверку его access token и уведомление подписчиков
// о смене сессии.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/magabrotheeeer/sublist/internal/lib/jwt"
	"github.com/magabrotheeeer/sublist/internal/lib/sl"
	"github.com/magabrotheeeer/sublist/internal/models"
)

var (
	// ErrUnknownProvider возвращается для провайдера, которого нет в списке разрешённых.
	ErrUnknownProvider = errors.New("unknown oauth provider")
	// ErrInvalidRedirect возвращается для адреса возврата, который не является абсолютным URL.
	ErrInvalidRedirect = errors.New("invalid redirect url")
)

// Providers OAuth-провайдеры, доступные для входа.
var Providers = []string{"google", "kakao", "github", "apple"}

// RemoteAuth определяет методы внешнего сервиса авторизации.
type RemoteAuth interface {
	SignOut(ctx context.Context, accessToken string) error
}

// Event изменение сессии. SignedIn == false означает выход.
type Event struct {
	Account  models.AccountInfo
	SignedIn bool
}

// Listener получает события смены сессии.
type Listener func(ctx context.Context, ev Event)

// AuthService хранит текущую сессию и сообщает подписчикам о входе и выходе.
type AuthService struct {
	baseURL  string
	jwtMaker jwt.Maker
	remote   RemoteAuth
	log      *slog.Logger

	mu        sync.Mutex
	account   *models.AccountInfo
	token     string
	listeners []Listener
}

// NewAuthService создает новый экземпляр AuthService.
// baseURL адрес сервиса авторизации, remote может быть nil.
func NewAuthService(baseURL string, jwtMaker jwt.Maker, remote RemoteAuth, log *slog.Logger) *AuthService {
	return &AuthService{
		baseURL:  strings.TrimRight(baseURL, "/"),
		jwtMaker: jwtMaker,
		remote:   remote,
		log:      log,
	}
}

// OnSessionChange добавляет подписчика на смену сессии.
func (s *AuthService) OnSessionChange(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// SignIn возвращает адрес страницы входа провайдера. После входа сервис
// авторизации перенаправляет пользователя на redirect.
func (s *AuthService) SignIn(provider, redirect string) (string, error) {
	const op = "services.AuthService.SignIn"

	provider = strings.ToLower(strings.TrimSpace(provider))
	if !knownProvider(provider) {
		return "", fmt.Errorf("%s: %w: %q", op, ErrUnknownProvider, provider)
	}

	q := url.Values{}
	q.Set("provider", provider)
	if redirect != "" {
		u, err := url.Parse(redirect)
		if err != nil || !u.IsAbs() {
			return "", fmt.Errorf("%s: %w", op, ErrInvalidRedirect)
		}
		q.Set("redirect_to", u.String())
	}

	return s.baseURL + "/auth/v1/authorize?" + q.Encode(), nil
}

// Login проверяет access token и открывает сессию. Подписчики получают событие
// входа один раз при переходе из неавторизованного состояния; повторный вход
// тем же аккаунтом только обновляет токен. Вход другим аккаунтом сначала
// закрывает прежнюю сессию.
func (s *AuthService) Login(ctx context.Context, accessToken string) (models.AccountInfo, error) {
	const op = "services.AuthService.Login"

	select {
	case <-ctx.Done():
		return models.AccountInfo{}, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	claims, err := s.jwtMaker.ParseToken(accessToken)
	if err != nil {
		return models.AccountInfo{}, fmt.Errorf("%s: %w", op, err)
	}
	account := models.AccountInfo{ID: claims.UserID(), Email: claims.Email}

	s.mu.Lock()
	prev := s.account
	s.account = &account
	s.token = accessToken
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	var events []Event
	switch {
	case prev == nil:
		events = []Event{{Account: account, SignedIn: true}}
	case prev.ID != account.ID:
		events = []Event{{Account: *prev}, {Account: account, SignedIn: true}}
	}

	if len(events) > 0 {
		s.log.Info("session opened", slog.String("op", op), sl.Owner(account.Owner()))
	}
	for _, ev := range events {
		notify(ctx, listeners, ev)
	}
	return account, nil
}

// Authenticate проверяет access token без изменения сессии.
func (s *AuthService) Authenticate(accessToken string) (models.AccountInfo, error) {
	const op = "services.AuthService.Authenticate"
	claims, err := s.jwtMaker.ParseToken(accessToken)
	if err != nil {
		return models.AccountInfo{}, fmt.Errorf("%s: %w", op, err)
	}
	return models.AccountInfo{ID: claims.UserID(), Email: claims.Email}, nil
}

// Session возвращает текущий аккаунт; ok == false без входа.
func (s *AuthService) Session() (models.AccountInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.account == nil {
		return models.AccountInfo{}, false
	}
	return *s.account, true
}

// SignOut закрывает сессию. Ошибка внешнего сервиса только логируется:
// локальная сессия закрывается в любом случае.
func (s *AuthService) SignOut(ctx context.Context) {
	const op = "services.AuthService.SignOut"

	s.mu.Lock()
	prev, token := s.account, s.token
	s.account, s.token = nil, ""
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	if prev == nil {
		return
	}
	if s.remote != nil {
		if err := s.remote.SignOut(ctx, token); err != nil {
			s.log.Warn("remote sign out failed", slog.String("op", op), sl.Err(err))
		}
	}
	s.log.Info("session closed", slog.String("op", op), sl.Owner(prev.Owner()))
	notify(ctx, listeners, Event{Account: *prev})
}

func notify(ctx context.Context, listeners []Listener, ev Event) {
	for _, fn := range listeners {
		fn(ctx, ev)
	}
}

func knownProvider(p string) bool {
	for _, known := range Providers {
		if p == known {
			return true
		}
	}
	return false
}
