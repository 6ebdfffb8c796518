package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"agency_messaging/internal/codec"
	"agency_messaging/internal/domain"
	"agency_messaging/internal/offer"
	"agency_messaging/internal/realtime"
	apperrors "agency_messaging/pkg/errors"
	"agency_messaging/pkg/logger"
)

// casOfferRepo повторяет поведение UPDATE ... WHERE status='sent'
type casOfferRepo struct {
	mu     sync.Mutex
	offers map[uuid.UUID]domain.Offer
	bodies map[uuid.UUID]string
}

func newCASOfferRepo() *casOfferRepo {
	return &casOfferRepo{offers: make(map[uuid.UUID]domain.Offer), bodies: make(map[uuid.UUID]string)}
}

func (r *casOfferRepo) CreateWithMessage(_ context.Context, o *domain.Offer, m *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offers[o.ID] = *o
	r.bodies[m.ID] = m.Body
	return nil
}

func (r *casOfferRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.offers[id]
	if !ok {
		return nil, apperrors.ErrOfferNotFound
	}
	return &o, nil
}

func (r *casOfferRepo) ListByIDs(_ context.Context, ids []uuid.UUID) ([]domain.Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Offer
	for _, id := range ids {
		if o, ok := r.offers[id]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *casOfferRepo) UpdateStatusIfSent(_ context.Context, id uuid.UUID, status string) (*domain.Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.offers[id]
	if !ok {
		return nil, apperrors.ErrOfferNotFound
	}
	if o.Status != domain.OfferStatusSent {
		return &o, apperrors.ErrOfferClosed
	}
	o.Status = status
	r.offers[id] = o
	return &o, nil
}

func newOfferFixture() (OfferService, *casOfferRepo, *realtime.MemoryBroker) {
	repo := newCASOfferRepo()
	broker := realtime.NewMemoryBroker(logger.Nop())
	return NewOfferService(repo, nil, broker, "https://shop.example.com/checkout", logger.Nop()), repo, broker
}

func TestOfferService_Create_WritesOfferAndCarrier(t *testing.T) {
	svc, repo, broker := newOfferFixture()
	clientID := uuid.New()
	agent := domain.Actor{ID: uuid.New(), Role: domain.RoleAgent}
	serviceID := uuid.New()

	inbox := subscribe(t, broker, realtime.InboxTopic)

	o, msg, err := svc.Create(context.Background(), agent, clientID, CreateOfferInput{
		Title: "Brand kit", Price: "$1,200", DeliveryDate: "2026-04-01", Revisions: 2,
		Deliverables: "Logo, palette", ServiceID: &serviceID, ServiceTitle: "Branding",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.Status != domain.OfferStatusSent || msg.Status != domain.MessageStatusReplied {
		t.Errorf("unexpected statuses %s / %s", o.Status, msg.Status)
	}

	decoded, ok := codec.Decode(repo.bodies[msg.ID]).(codec.Offer)
	if !ok {
		t.Fatalf("carrier body is not an offer: %q", msg.Body)
	}
	if decoded.Payload.OfferID != o.ID || decoded.Payload.ServiceTitle != "Branding" {
		t.Errorf("unexpected payload %+v", decoded.Payload)
	}

	if ev := nextEvent(t, inbox); ev.Type != domain.EventMessageCreated {
		t.Errorf("expected message.created on inbox, got %s", ev.Type)
	}
}

func TestOfferService_Create_Validation(t *testing.T) {
	svc, _, _ := newOfferFixture()
	clientID := uuid.New()

	client := domain.Actor{ID: clientID, Role: domain.RoleClient}
	if _, _, err := svc.Create(context.Background(), client, clientID, CreateOfferInput{Title: "x"}); !errors.Is(err, apperrors.ErrForbidden) {
		t.Errorf("client must not create offers, got %v", err)
	}

	agent := domain.Actor{ID: uuid.New(), Role: domain.RoleAgent}
	if _, _, err := svc.Create(context.Background(), agent, clientID, CreateOfferInput{Title: " "}); !errors.Is(err, apperrors.ErrBadRequest) {
		t.Errorf("empty title must be rejected, got %v", err)
	}
	if _, _, err := svc.Create(context.Background(), agent, clientID, CreateOfferInput{Title: "x", Revisions: -1}); !errors.Is(err, apperrors.ErrBadRequest) {
		t.Errorf("negative revisions must be rejected, got %v", err)
	}
}

func TestOfferService_AcceptThenRejectIsClosed(t *testing.T) {
	svc, _, broker := newOfferFixture()
	ctx := context.Background()
	clientID := uuid.New()
	client := domain.Actor{ID: clientID, Role: domain.RoleClient}
	agent := domain.Actor{ID: uuid.New(), Role: domain.RoleAgent}
	serviceID := uuid.New()

	o, _, err := svc.Create(ctx, agent, clientID, CreateOfferInput{Title: "Site", ServiceID: &serviceID})
	if err != nil {
		t.Fatal(err)
	}

	conv := subscribe(t, broker, realtime.ConversationTopic(clientID))

	res, err := svc.Transition(ctx, client, o.ID, offer.ActionAccept)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if res.Offer.Status != domain.OfferStatusAccepted {
		t.Errorf("expected accepted, got %s", res.Offer.Status)
	}
	want := "https://shop.example.com/checkout/" + serviceID.String() + "?offer=" + o.ID.String()
	if res.CheckoutURL != want {
		t.Errorf("checkout url %q, want %q", res.CheckoutURL, want)
	}
	if ev := nextEvent(t, conv); ev.Type != domain.EventOfferUpdated {
		t.Errorf("expected offer.updated, got %s", ev.Type)
	}

	if _, err := svc.Transition(ctx, client, o.ID, offer.ActionReject); !errors.Is(err, apperrors.ErrOfferClosed) {
		t.Errorf("reject after accept must be closed, got %v", err)
	}
}

func TestOfferService_ConcurrentAcceptAndWithdraw(t *testing.T) {
	svc, _, _ := newOfferFixture()
	ctx := context.Background()
	clientID := uuid.New()
	client := domain.Actor{ID: clientID, Role: domain.RoleClient}
	agent := domain.Actor{ID: uuid.New(), Role: domain.RoleAgent}

	o, _, _ := svc.Create(ctx, agent, clientID, CreateOfferInput{Title: "Race"})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() { defer wg.Done(); _, errs[0] = svc.Transition(ctx, client, o.ID, offer.ActionAccept) }()
	go func() { defer wg.Done(); _, errs[1] = svc.Transition(ctx, agent, o.ID, offer.ActionWithdraw) }()
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else if !errors.Is(err, apperrors.ErrOfferClosed) {
			t.Errorf("unexpected error %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("exactly one terminal write must win, got %d", ok)
	}
}

func TestOfferService_WrongActor(t *testing.T) {
	svc, _, _ := newOfferFixture()
	ctx := context.Background()
	clientID := uuid.New()
	agent := domain.Actor{ID: uuid.New(), Role: domain.RoleAgent}

	o, _, _ := svc.Create(ctx, agent, clientID, CreateOfferInput{Title: "x"})

	if _, err := svc.Transition(ctx, agent, o.ID, offer.ActionAccept); !errors.Is(err, apperrors.ErrForbidden) {
		t.Errorf("agent cannot accept, got %v", err)
	}
	stranger := domain.Actor{ID: uuid.New(), Role: domain.RoleClient}
	if _, err := svc.Transition(ctx, stranger, o.ID, offer.ActionReject); !errors.Is(err, apperrors.ErrForbidden) {
		t.Errorf("stranger cannot reject, got %v", err)
	}
}

func TestOfferService_LookupHidesForeignOffers(t *testing.T) {
	svc, _, _ := newOfferFixture()
	ctx := context.Background()
	agent := domain.Actor{ID: uuid.New(), Role: domain.RoleAgent}
	mine, other := uuid.New(), uuid.New()

	a, _, _ := svc.Create(ctx, agent, mine, CreateOfferInput{Title: "a"})
	b, _, _ := svc.Create(ctx, agent, other, CreateOfferInput{Title: "b"})

	client := domain.Actor{ID: mine, Role: domain.RoleClient}
	got, err := svc.Lookup(ctx, client, []uuid.UUID{a.ID, b.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != a.ID {
		t.Errorf("client should see only own offer, got %+v", got)
	}

	all, _ := svc.Lookup(ctx, agent, []uuid.UUID{a.ID, b.ID})
	if len(all) != 2 {
		t.Errorf("agent should see both offers, got %d", len(all))
	}
}

func TestCheckoutURL_WithoutService(t *testing.T) {
	if got := CheckoutURL("https://x", &domain.Offer{ID: uuid.New()}); got != "" {
		t.Errorf("expected empty url, got %q", got)
	}
}

func TestOfferService_WritesAuditTrail(t *testing.T) {
	repo := newCASOfferRepo()
	audit := &memAuditRepo{}
	broker := realtime.NewMemoryBroker(logger.Nop())
	svc := NewOfferService(repo, NewAuditService(audit, logger.Nop()), broker, "https://shop.example.com/checkout", logger.Nop())

	ctx := context.Background()
	clientID := uuid.New()
	agent := domain.Actor{ID: uuid.New(), Role: domain.RoleAgent}
	client := domain.Actor{ID: clientID, Role: domain.RoleClient}

	o, _, err := svc.Create(ctx, agent, clientID, CreateOfferInput{Title: "Logo"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Transition(ctx, client, o.ID, offer.ActionReject); err != nil {
		t.Fatal(err)
	}
	// отказ в переходе в журнал не попадает
	svc.Transition(ctx, agent, o.ID, offer.ActionWithdraw)

	logs := audit.snapshot()
	if len(logs) != 2 {
		t.Fatalf("audit = %+v", logs)
	}
	if logs[0].EventType != domain.EventTypeOfferSent || *logs[0].ActorUserID != agent.ID {
		t.Errorf("first entry = %+v", logs[0])
	}
	if logs[1].EventType != domain.EventTypeOfferRejected || logs[1].Payload["from"] != domain.OfferStatusSent {
		t.Errorf("second entry = %+v", logs[1])
	}
}

func TestOfferService_AuditFailureDoesNotFailTransition(t *testing.T) {
	repo := newCASOfferRepo()
	audit := &memAuditRepo{err: errors.New("db down")}
	svc := NewOfferService(repo, NewAuditService(audit, logger.Nop()), realtime.NewMemoryBroker(logger.Nop()), "", logger.Nop())

	clientID := uuid.New()
	o, _, err := svc.Create(context.Background(), domain.Actor{ID: uuid.New(), Role: domain.RoleAgent}, clientID, CreateOfferInput{Title: "Logo"})
	if err != nil {
		t.Fatalf("create must succeed when audit fails: %v", err)
	}
	if _, err := svc.Transition(context.Background(), domain.Actor{ID: clientID, Role: domain.RoleClient}, o.ID, offer.ActionAccept); err != nil {
		t.Fatalf("transition must succeed when audit fails: %v", err)
	}
}
