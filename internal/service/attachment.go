package service

import (
	"context"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"agency_messaging/internal/codec"
	"agency_messaging/internal/domain"
	"agency_messaging/internal/storage"
	apperrors "agency_messaging/pkg/errors"
	"agency_messaging/pkg/logger"
)

const voiceNoteBaseName = "voice-note"

// Upload - один файл из запроса. Open вызывается один раз из отдельной горутины.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// UploadResult - итог по одному файлу: либо вложение, либо причина отказа
type UploadResult struct {
	Name       string            `json:"name"`
	Attachment *codec.Attachment `json:"attachment,omitempty"`
	Error      string            `json:"error,omitempty"`
}

type AttachmentService interface {
	// UploadAll загружает файлы параллельно. Ошибка одного файла не отменяет остальные,
	// уже загруженные файлы не откатываются.
	UploadAll(ctx context.Context, actor domain.Actor, clientID uuid.UUID, files []Upload) ([]UploadResult, error)
	UploadVoiceNote(ctx context.Context, actor domain.Actor, clientID uuid.UUID, file Upload) (*codec.Attachment, error)
}

type attachmentService struct {
	store       storage.Storage
	maxBytes    int64
	concurrency int
	now         func() time.Time
	tag         func() string
	log         logger.Logger
}

func NewAttachmentService(store storage.Storage, maxBytes int64, concurrency int, log logger.Logger) AttachmentService {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &attachmentService{
		store:       store,
		maxBytes:    maxBytes,
		concurrency: concurrency,
		now:         time.Now,
		tag:         shortTag,
		log:         log,
	}
}

func (s *attachmentService) UploadAll(ctx context.Context, actor domain.Actor, clientID uuid.UUID, files []Upload) ([]UploadResult, error) {
	if !actor.CanAccessConversation(clientID) {
		return nil, apperrors.ErrForbidden
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files", apperrors.ErrBadRequest)
	}

	results := make([]UploadResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			results[i].Name = f.Name
			url, err := s.put(gctx, actor.Role, clientID, NormalizeFileName(f.Name), f)
			if err != nil {
				s.log.Warn("Attachment upload failed", "name", f.Name, "client_id", clientID, "error", err)
				results[i].Error = err.Error()
				return nil
			}
			results[i].Attachment = &codec.Attachment{Label: codec.LabelAttachment, URL: url}
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

func (s *attachmentService) UploadVoiceNote(ctx context.Context, actor domain.Actor, clientID uuid.UUID, file Upload) (*codec.Attachment, error) {
	if !actor.CanAccessConversation(clientID) {
		return nil, apperrors.ErrForbidden
	}
	if file.Size == 0 {
		return nil, fmt.Errorf("%w: empty recording", apperrors.ErrBadRequest)
	}

	url, err := s.put(ctx, actor.Role, clientID, VoiceNoteName(file.ContentType), file)
	if err != nil {
		s.log.Warn("Voice note upload failed", "client_id", clientID, "error", err)
		return nil, err
	}
	return &codec.Attachment{Label: codec.LabelVoiceNote, URL: url}, nil
}

func (s *attachmentService) put(ctx context.Context, role string, clientID uuid.UUID, name string, f Upload) (string, error) {
	if f.Size > s.maxBytes {
		return "", apperrors.ErrAttachmentTooLarge
	}

	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer rc.Close()

	key := StoragePath(role, clientID, s.now(), s.tag(), name)
	return s.store.Save(ctx, key, &limitedReader{r: rc, remaining: s.maxBytes}, f.ContentType)
}

// StoragePath - <role>/<clientID>/<unix-millis>-<tag>-<name>. tag различает файлы
// с одинаковым именем, загруженные в одну миллисекунду.
func StoragePath(role string, clientID uuid.UUID, at time.Time, tag, name string) string {
	return fmt.Sprintf("%s/%s/%d-%s-%s", role, clientID, at.UnixMilli(), tag, name)
}

func shortTag() string {
	return uuid.NewString()[:8]
}

// NormalizeFileName приводит имя к нижнему регистру, заменяет пробелы на "_"
// и убирает разделители пути
func NormalizeFileName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.NewReplacer("/", "", "\\", "").Replace(name)
	name = strings.Join(strings.FieldsFunc(name, unicode.IsSpace), "_")
	name = strings.TrimLeft(name, ".")
	if name == "" {
		return "file"
	}
	return name
}

// VoiceNoteName - имя файла записи; расширение следует типу контейнера
func VoiceNoteName(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = ""
	}
	switch mediaType {
	case "audio/ogg", "audio/opus":
		return voiceNoteBaseName + ".ogg"
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return voiceNoteBaseName + ".m4a"
	case "audio/mpeg":
		return voiceNoteBaseName + ".mp3"
	case "audio/wav", "audio/x-wav":
		return voiceNoteBaseName + ".wav"
	default:
		return voiceNoteBaseName + ".webm"
	}
}

// IsAudio - принимает только аудио-контейнеры для голосовых сообщений
func IsAudio(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && strings.HasPrefix(mediaType, "audio/")
}

// limitedReader обрывает чтение с ErrAttachmentTooLarge, если файл больше заявленного
type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, apperrors.ErrAttachmentTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, apperrors.ErrAttachmentTooLarge
	}
	return n, err
}
