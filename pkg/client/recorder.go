package client

import (
	"errors"
	"fmt"
	"sync"
	"time"

	apperrors "agency_messaging/pkg/errors"
)

// VoiceNoteContentType - записи упаковываются в Ogg-контейнер с Opus
const VoiceNoteContentType = "audio/ogg"

var (
	ErrAlreadyRecording = errors.New("recording already in progress")
	ErrNotRecording     = errors.New("no recording in progress")
	ErrEmptyRecording   = errors.New("recording is empty")
)

// Recording - готовая голосовая запись для UploadVoiceNote
type Recording struct {
	Data        []byte
	ContentType string
	Duration    time.Duration
}

// capture - активный захват микрофона
type capture interface {
	Stop() ([]byte, error)
}

// Recorder записывает голосовое сообщение с микрофона. Если доступ к устройству
// не получен, Start возвращает ErrMicrophoneUnavailable и запись не начинается.
type Recorder struct {
	mu        sync.Mutex
	start     func() (capture, error)
	now       func() time.Time
	active    capture
	startedAt time.Time
}

func NewRecorder() *Recorder {
	return &Recorder{start: startMicrophone, now: time.Now}
}

func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return ErrAlreadyRecording
	}
	c, err := r.start()
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrMicrophoneUnavailable, err)
	}
	r.active = c
	r.startedAt = r.now()
	return nil
}

func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

// Stop завершает запись и возвращает ее одним блобом
func (r *Recorder) Stop() (*Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active == nil {
		return nil, ErrNotRecording
	}
	c := r.active
	r.active = nil

	data, err := c.Stop()
	if err != nil {
		return nil, fmt.Errorf("stop recording: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyRecording
	}
	return &Recording{
		Data:        data,
		ContentType: VoiceNoteContentType,
		Duration:    r.now().Sub(r.startedAt),
	}, nil
}
