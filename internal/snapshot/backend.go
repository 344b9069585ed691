package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/magabrotheeeer/sublist/internal/cache"
)

// FileBackend хранит снимок в файле. Запись атомарна: временный файл
// в том же каталоге переименовывается поверх старого.
type FileBackend struct {
	path string
}

// NewFileBackend создает новый экземпляр FileBackend.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (b *FileBackend) Read(ctx context.Context) ([]byte, error) {
	const op = "snapshot.FileBackend.Read"

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return data, nil
}

func (b *FileBackend) Write(ctx context.Context, data []byte) error {
	const op = "snapshot.FileBackend.Write"

	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := os.Rename(tmp.Name(), b.path); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RedisBackend хранит снимок под одним ключом redis без срока жизни.
type RedisBackend struct {
	cache *cache.Cache
	key   string
}

// NewRedisBackend создает новый экземпляр RedisBackend.
func NewRedisBackend(c *cache.Cache, key string) *RedisBackend {
	return &RedisBackend{cache: c, key: key}
}

func (b *RedisBackend) Read(ctx context.Context) ([]byte, error) {
	const op = "snapshot.RedisBackend.Read"
	data, found, err := b.cache.GetRaw(ctx, b.key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil, ErrNoSnapshot
	}
	return data, nil
}

func (b *RedisBackend) Write(ctx context.Context, data []byte) error {
	const op = "snapshot.RedisBackend.Write"
	if err := b.cache.SetRaw(ctx, b.key, data, 0); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
