package handler

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"agency_messaging/internal/codec"
	"agency_messaging/internal/domain"
	"agency_messaging/internal/offer"
	"agency_messaging/internal/service"
)

type mockChatService struct {
	sendFn      func(ctx context.Context, actor domain.Actor, clientID uuid.UUID, input service.SendMessageInput) (*domain.Message, error)
	threadFn    func(ctx context.Context, actor domain.Actor, clientID uuid.UUID) ([]service.ThreadMessage, error)
	setStatusFn func(ctx context.Context, actor domain.Actor, clientID, messageID uuid.UUID, status string) (*domain.Message, error)
}

func (m *mockChatService) Send(ctx context.Context, actor domain.Actor, clientID uuid.UUID, input service.SendMessageInput) (*domain.Message, error) {
	return m.sendFn(ctx, actor, clientID, input)
}

func (m *mockChatService) Thread(ctx context.Context, actor domain.Actor, clientID uuid.UUID) ([]service.ThreadMessage, error) {
	return m.threadFn(ctx, actor, clientID)
}

func (m *mockChatService) SetStatus(ctx context.Context, actor domain.Actor, clientID, messageID uuid.UUID, status string) (*domain.Message, error) {
	return m.setStatusFn(ctx, actor, clientID, messageID, status)
}

type mockInboxService struct {
	listFn func(ctx context.Context, actor domain.Actor, query string) ([]domain.ConversationSummary, error)
}

func (m *mockInboxService) Start(context.Context) error { return nil }

func (m *mockInboxService) List(ctx context.Context, actor domain.Actor, query string) ([]domain.ConversationSummary, error) {
	return m.listFn(ctx, actor, query)
}

type mockAttachmentService struct {
	uploadAllFn func(ctx context.Context, actor domain.Actor, clientID uuid.UUID, files []service.Upload) ([]service.UploadResult, error)
	voiceFn     func(ctx context.Context, actor domain.Actor, clientID uuid.UUID, file service.Upload) (*codec.Attachment, error)
}

func (m *mockAttachmentService) UploadAll(ctx context.Context, actor domain.Actor, clientID uuid.UUID, files []service.Upload) ([]service.UploadResult, error) {
	return m.uploadAllFn(ctx, actor, clientID, files)
}

func (m *mockAttachmentService) UploadVoiceNote(ctx context.Context, actor domain.Actor, clientID uuid.UUID, file service.Upload) (*codec.Attachment, error) {
	return m.voiceFn(ctx, actor, clientID, file)
}

type mockOfferService struct {
	createFn     func(ctx context.Context, actor domain.Actor, clientID uuid.UUID, input service.CreateOfferInput) (*domain.Offer, *domain.Message, error)
	transitionFn func(ctx context.Context, actor domain.Actor, offerID uuid.UUID, action offer.Action) (*service.OfferResult, error)
	lookupFn     func(ctx context.Context, actor domain.Actor, ids []uuid.UUID) ([]domain.Offer, error)
}

func (m *mockOfferService) Create(ctx context.Context, actor domain.Actor, clientID uuid.UUID, input service.CreateOfferInput) (*domain.Offer, *domain.Message, error) {
	return m.createFn(ctx, actor, clientID, input)
}

func (m *mockOfferService) Transition(ctx context.Context, actor domain.Actor, offerID uuid.UUID, action offer.Action) (*service.OfferResult, error) {
	return m.transitionFn(ctx, actor, offerID, action)
}

func (m *mockOfferService) Lookup(ctx context.Context, actor domain.Actor, ids []uuid.UUID) ([]domain.Offer, error) {
	return m.lookupFn(ctx, actor, ids)
}

type mockAuditService struct {
	historyFn func(ctx context.Context, actor domain.Actor, clientID uuid.UUID, limit int) ([]domain.AuditLog, error)
}

func (m *mockAuditService) LogEvent(context.Context, domain.Actor, uuid.UUID, string, map[string]any) error {
	return nil
}

func (m *mockAuditService) History(ctx context.Context, actor domain.Actor, clientID uuid.UUID, limit int) ([]domain.AuditLog, error) {
	return m.historyFn(ctx, actor, clientID, limit)
}

type mockPreferenceService struct {
	values map[string]string
	setErr error
}

func (m *mockPreferenceService) Get(_ context.Context, _ domain.Actor, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", errNotFound
	}
	return v, nil
}

func (m *mockPreferenceService) Set(_ context.Context, _ domain.Actor, key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func (m *mockPreferenceService) All(context.Context, domain.Actor) (map[string]string, error) {
	return m.values, nil
}

// mockPresenceService записывает вызовы; безопасен для горутин WebSocket-обработчика
type mockPresenceService struct {
	mu         sync.Mutex
	entries    []domain.PresenceEntry
	joined     []string
	left       []string
	typing     int
	heartbeats int
}

func (m *mockPresenceService) Join(_ context.Context, _ uuid.UUID, role string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := "key-" + role
	m.joined = append(m.joined, key)
	return key
}

func (m *mockPresenceService) Heartbeat(context.Context, uuid.UUID, string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.heartbeats++
}

func (m *mockPresenceService) Leave(_ context.Context, _ uuid.UUID, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.left = append(m.left, key)
}

func (m *mockPresenceService) State(_ context.Context, actor domain.Actor, clientID uuid.UUID) ([]domain.PresenceEntry, error) {
	if !actor.CanAccessConversation(clientID) {
		return nil, errForbidden
	}
	return m.entries, nil
}

func (m *mockPresenceService) Typing(context.Context, domain.Actor, uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.typing++
	return true
}

func (m *mockPresenceService) Sweep(context.Context) (int, error) { return 0, nil }

func (m *mockPresenceService) snapshot() (joined, left []string, typing, heartbeats int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.joined...), append([]string(nil), m.left...), m.typing, m.heartbeats
}
