package service

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"agency_messaging/internal/domain"
	apperrors "agency_messaging/pkg/errors"
)

// ---------------------------------------------------------------------------
// memMessageRepo - журнал сообщений в памяти
// ---------------------------------------------------------------------------

type memMessageRepo struct {
	mu        sync.Mutex
	messages  []domain.Message
	clock     time.Time
	createErr error
}

func newMemMessageRepo() *memMessageRepo {
	return &memMessageRepo{clock: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (r *memMessageRepo) Create(_ context.Context, m *domain.Message) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clock = r.clock.Add(time.Second)
	m.CreatedAt = r.clock
	r.messages = append(r.messages, *m)
	return nil
}

func (r *memMessageRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id {
			m := m
			return &m, nil
		}
	}
	return nil, apperrors.ErrMessageNotFound
}

func (r *memMessageRepo) ListByClient(_ context.Context, clientID uuid.UUID) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Message
	for _, m := range r.messages {
		if m.ClientID == clientID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memMessageRepo) ListAll(_ context.Context) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Message(nil), r.messages...), nil
}

func (r *memMessageRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.messages {
		if r.messages[i].ID == id {
			r.messages[i].Status = status
			m := r.messages[i]
			return &m, nil
		}
	}
	return nil, apperrors.ErrMessageNotFound
}

// ---------------------------------------------------------------------------
// mockProfileRepo
// ---------------------------------------------------------------------------

type mockProfileRepo struct {
	names     map[uuid.UUID]string
	namesErr  error
	upserted  []domain.Profile
	upsertErr error
}

func (m *mockProfileRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Profile, error) {
	if name, ok := m.names[id]; ok {
		return &domain.Profile{ID: id, DisplayName: name, Role: domain.RoleClient}, nil
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockProfileRepo) DisplayNames(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	if m.namesErr != nil {
		return nil, m.namesErr
	}
	out := make(map[uuid.UUID]string)
	for _, id := range ids {
		if name, ok := m.names[id]; ok {
			out[id] = name
		}
	}
	return out, nil
}

func (m *mockProfileRepo) Upsert(_ context.Context, p *domain.Profile) error {
	m.upserted = append(m.upserted, *p)
	return m.upsertErr
}

// ---------------------------------------------------------------------------
// mockOfferRepo
// ---------------------------------------------------------------------------

type mockOfferRepo struct {
	createFunc    func(ctx context.Context, o *domain.Offer, m *domain.Message) error
	getByIDFunc   func(ctx context.Context, id uuid.UUID) (*domain.Offer, error)
	listByIDsFunc func(ctx context.Context, ids []uuid.UUID) ([]domain.Offer, error)
	updateFunc    func(ctx context.Context, id uuid.UUID, status string) (*domain.Offer, error)
}

func (m *mockOfferRepo) CreateWithMessage(ctx context.Context, o *domain.Offer, msg *domain.Message) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, o, msg)
	}
	return nil
}

func (m *mockOfferRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Offer, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, apperrors.ErrOfferNotFound
}

func (m *mockOfferRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Offer, error) {
	if m.listByIDsFunc != nil {
		return m.listByIDsFunc(ctx, ids)
	}
	return nil, nil
}

func (m *mockOfferRepo) UpdateStatusIfSent(ctx context.Context, id uuid.UUID, status string) (*domain.Offer, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, status)
	}
	return nil, nil
}

// ---------------------------------------------------------------------------
// memPresenceRepo / mockTypingRepo / memPreferenceRepo
// ---------------------------------------------------------------------------

type memPresenceRepo struct {
	mu      sync.Mutex
	entries map[uuid.UUID]map[string]domain.PresenceEntry
	failAll error
}

func newMemPresenceRepo() *memPresenceRepo {
	return &memPresenceRepo{entries: make(map[uuid.UUID]map[string]domain.PresenceEntry)}
}

func (r *memPresenceRepo) Upsert(_ context.Context, clientID uuid.UUID, e domain.PresenceEntry) error {
	if r.failAll != nil {
		return r.failAll
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries[clientID] == nil {
		r.entries[clientID] = make(map[string]domain.PresenceEntry)
	}
	r.entries[clientID][e.Key] = e
	return nil
}

func (r *memPresenceRepo) Remove(_ context.Context, clientID uuid.UUID, keys ...string) error {
	if r.failAll != nil {
		return r.failAll
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range keys {
		delete(r.entries[clientID], k)
	}
	return nil
}

func (r *memPresenceRepo) List(_ context.Context, clientID uuid.UUID) ([]domain.PresenceEntry, error) {
	if r.failAll != nil {
		return nil, r.failAll
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.PresenceEntry
	for _, e := range r.entries[clientID] {
		out = append(out, e)
	}
	return out, nil
}

func (r *memPresenceRepo) Conversations(_ context.Context) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []uuid.UUID
	for id, entries := range r.entries {
		if len(entries) > 0 {
			out = append(out, id)
		}
	}
	return out, nil
}

type mockTypingRepo struct {
	acquireFunc func(ctx context.Context, clientID, actorID uuid.UUID, window time.Duration) (bool, error)
}

func (m *mockTypingRepo) Acquire(ctx context.Context, clientID, actorID uuid.UUID, window time.Duration) (bool, error) {
	if m.acquireFunc != nil {
		return m.acquireFunc(ctx, clientID, actorID, window)
	}
	return true, nil
}

type memPreferenceRepo struct {
	values map[string]string
}

func (r *memPreferenceRepo) Get(_ context.Context, actorID uuid.UUID, key string) (string, bool, error) {
	v, ok := r.values[actorID.String()+"/"+key]
	return v, ok, nil
}

func (r *memPreferenceRepo) Set(_ context.Context, actorID uuid.UUID, key, value string) error {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	r.values[actorID.String()+"/"+key] = value
	return nil
}

func (r *memPreferenceRepo) All(_ context.Context, actorID uuid.UUID) (map[string]string, error) {
	out := make(map[string]string)
	prefix := actorID.String() + "/"
	for k, v := range r.values {
		if strings.HasPrefix(k, prefix) {
			out[strings.TrimPrefix(k, prefix)] = v
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// memStorage
// ---------------------------------------------------------------------------

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	failOn  string
}

func newMemStorage() *memStorage {
	return &memStorage{objects: make(map[string][]byte)}
}

func (s *memStorage) Save(_ context.Context, key string, data io.Reader, _ string) (string, error) {
	if s.failOn != "" && strings.HasSuffix(key, s.failOn) {
		return "", io.ErrUnexpectedEOF
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = b
	return "https://files.example.com/" + key, nil
}

func (s *memStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func upload(name, contentType, content string) Upload {
	return Upload{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}

// ---------------------------------------------------------------------------
// memAuditRepo
// ---------------------------------------------------------------------------

type memAuditRepo struct {
	mu   sync.Mutex
	logs []domain.AuditLog
	err  error
}

func (r *memAuditRepo) CreateLog(_ context.Context, l *domain.AuditLog) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	l.ID = int64(len(r.logs) + 1)
	r.logs = append(r.logs, *l)
	return nil
}

func (r *memAuditRepo) ListByClient(_ context.Context, clientID uuid.UUID, limit int) ([]domain.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.AuditLog
	for i := len(r.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if l := r.logs[i]; l.ClientID != nil && *l.ClientID == clientID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *memAuditRepo) snapshot() []domain.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.AuditLog(nil), r.logs...)
}
