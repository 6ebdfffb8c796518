package storage

import (
	"context"
	"io"
)

// Storage - хранилище вложений. Ключ - путь внутри хранилища
// (например "client/<clientID>/<millis>-<tag>-photo.png"), повторная запись по ключу перезаписывает файл.
type Storage interface {
	// Save сохраняет файл и возвращает его публичный абсолютный URL
	Save(ctx context.Context, key string, data io.Reader, contentType string) (url string, err error)

	Delete(ctx context.Context, key string) error
}
