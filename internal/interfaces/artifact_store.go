package interfaces

import "context"

// ArtifactStore сохраняет сгенерированные изображения и выдает подписанные ссылки на чтение.
type ArtifactStore interface {
	// Persist скачивает sourceURL, загружает байты в приватное хранилище и возвращает подписанный URL.
	// Ошибки оборачивают models.ErrStorageFailed.
	Persist(ctx context.Context, sourceURL, nameHint string) (string, error)
}
