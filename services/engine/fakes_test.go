package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	claimRepo "venuepilot/database/repository/claim"
	clientRepo "venuepilot/database/repository/client"
	eventRepo "venuepilot/database/repository/event"
	roomRepo "venuepilot/database/repository/room"
	turnRepo "venuepilot/database/repository/turn"
	"venuepilot/models"

	"github.com/google/uuid"
)

// In-memory repository fakes shared by the engine tests.

type memClaims struct {
	mu     sync.Mutex
	claims map[string]*models.RoomClaim
}

func newMemClaims() *memClaims {
	return &memClaims{claims: map[string]*models.RoomClaim{}}
}

func (m *memClaims) Insert(ctx context.Context, claim *models.RoomClaim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	claim.CreatedAt = time.Now()
	cp := *claim
	m.claims[claim.ID] = &cp
	return nil
}

func (m *memClaims) GetByID(ctx context.Context, id string) (*models.RoomClaim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[id]
	if !ok {
		return nil, claimRepo.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memClaims) ListActive(ctx context.Context, roomID, date string) ([]models.RoomClaim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.RoomClaim
	for _, c := range m.claims {
		if !c.Released && c.RoomID == roomID && c.Date == date {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memClaims) ListByEvent(ctx context.Context, eventID string) ([]models.RoomClaim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.RoomClaim
	for _, c := range m.claims {
		if !c.Released && c.EventID == eventID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memClaims) ListContended(ctx context.Context) ([]models.RoomClaim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byKey := map[string][]models.RoomClaim{}
	events := map[string]map[string]bool{}
	for _, c := range m.claims {
		if c.Released {
			continue
		}
		byKey[c.ClaimKey()] = append(byKey[c.ClaimKey()], *c)
		if events[c.ClaimKey()] == nil {
			events[c.ClaimKey()] = map[string]bool{}
		}
		events[c.ClaimKey()][c.EventID] = true
	}
	var out []models.RoomClaim
	for key, claims := range byKey {
		if len(events[key]) > 1 {
			out = append(out, claims...)
		}
	}
	return out, nil
}

func (m *memClaims) SetStrength(ctx context.Context, id string, strength models.ClaimStrength) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[id]
	if !ok {
		return claimRepo.ErrNotFound
	}
	c.Strength = strength
	return nil
}

func (m *memClaims) Release(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[id]
	if !ok {
		return claimRepo.ErrNotFound
	}
	c.Released = true
	return nil
}

type memEvents struct {
	mu     sync.Mutex
	events map[string]*models.Event
}

func newMemEvents() *memEvents {
	return &memEvents{events: map[string]*models.Event{}}
}

func (m *memEvents) Create(ctx context.Context, ev *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev.Version = 1
	cp := *ev
	m.events[ev.ID] = &cp
	return nil
}

func (m *memEvents) GetByID(ctx context.Context, id string) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return nil, eventRepo.ErrNotFound
	}
	cp := *ev
	return &cp, nil
}

func (m *memEvents) GetByThreadKey(ctx context.Context, threadKey string) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range m.events {
		if ev.ThreadKey == threadKey {
			cp := *ev
			return &cp, nil
		}
	}
	return nil, eventRepo.ErrNotFound
}

func (m *memEvents) Update(ctx context.Context, ev *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.events[ev.ID]
	if !ok {
		return eventRepo.ErrNotFound
	}
	if stored.Version != ev.Version {
		return eventRepo.ErrVersionConflict
	}
	ev.Version++
	cp := *ev
	m.events[ev.ID] = &cp
	return nil
}

func (m *memEvents) SetAnchor(ctx context.Context, eventID, question string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[eventID]
	if !ok {
		return eventRepo.ErrNotFound
	}
	ev.LastQuestion = question
	return nil
}

func (m *memEvents) ListByClient(ctx context.Context, clientID string) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Event
	for _, ev := range m.events {
		if ev.ClientID == clientID {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (m *memEvents) ListStale(ctx context.Context, before time.Time) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Event
	for _, ev := range m.events {
		if !ev.Status.Terminal() && ev.LastInboundAt.Before(before) {
			out = append(out, *ev)
		}
	}
	return out, nil
}

type memTurns struct {
	mu        sync.Mutex
	turns     map[string]*models.ConversationTurn
	unmatched map[string]*models.UnmatchedMessage
}

func newMemTurns() *memTurns {
	return &memTurns{
		turns:     map[string]*models.ConversationTurn{},
		unmatched: map[string]*models.UnmatchedMessage{},
	}
}

func (m *memTurns) Insert(ctx context.Context, turn *models.ConversationTurn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	turn.CreatedAt = time.Now()
	cp := *turn
	m.turns[turn.ID] = &cp
	return nil
}

func (m *memTurns) GetByID(ctx context.Context, id string) (*models.ConversationTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.turns[id]
	if !ok {
		return nil, turnRepo.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTurns) ListByEvent(ctx context.Context, eventID string) ([]models.ConversationTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ConversationTurn
	for _, t := range m.turns {
		if t.EventID == eventID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memTurns) ListDrafts(ctx context.Context) ([]models.ConversationTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ConversationTurn
	for _, t := range m.turns {
		if t.Status == models.TurnDraft {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memTurns) UpdateDraftText(ctx context.Context, id, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.turns[id]
	if !ok {
		return turnRepo.ErrNotFound
	}
	if t.Status != models.TurnDraft {
		return turnRepo.ErrNotFound
	}
	t.RawText = text
	return nil
}

func (m *memTurns) MarkSent(ctx context.Context, id, finalText string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.turns[id]
	if !ok {
		return false, turnRepo.ErrNotFound
	}
	if t.Status != models.TurnDraft {
		return false, nil
	}
	now := time.Now()
	t.Status = models.TurnSent
	t.RawText = finalText
	t.SentAt = &now
	return true, nil
}

func (m *memTurns) MarkDiscarded(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.turns[id]
	if !ok {
		return false, turnRepo.ErrNotFound
	}
	if t.Status != models.TurnDraft {
		return false, nil
	}
	t.Status = models.TurnDiscarded
	return true, nil
}

func (m *memTurns) RevertToDraft(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.turns[id]
	if !ok {
		return false, turnRepo.ErrNotFound
	}
	if t.Status != models.TurnSent {
		return false, nil
	}
	t.Status = models.TurnDraft
	t.SentAt = nil
	return true, nil
}

func (m *memTurns) InsertUnmatched(ctx context.Context, msg *models.UnmatchedMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ReceivedAt = time.Now()
	cp := *msg
	m.unmatched[msg.ID] = &cp
	return nil
}

func (m *memTurns) ListUnmatched(ctx context.Context) ([]models.UnmatchedMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.UnmatchedMessage
	for _, u := range m.unmatched {
		if u.AssignedEventID == "" {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *memTurns) AssignUnmatched(ctx context.Context, id, eventID string) (*models.UnmatchedMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.unmatched[id]
	if !ok || u.AssignedEventID != "" {
		return nil, turnRepo.ErrNotFound
	}
	u.AssignedEventID = eventID
	cp := *u
	return &cp, nil
}

type memRooms struct {
	mu    sync.Mutex
	rooms map[string]*models.Room
	// getFailures makes the next that many GetByID calls fail.
	getFailures int
}

func newMemRooms(rooms ...models.Room) *memRooms {
	m := &memRooms{rooms: map[string]*models.Room{}}
	for i := range rooms {
		cp := rooms[i]
		m.rooms[cp.ID] = &cp
	}
	return m
}

func (m *memRooms) GetByID(ctx context.Context, id string) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getFailures > 0 {
		m.getFailures--
		return nil, errors.New("room lookup unavailable")
	}
	r, ok := m.rooms[id]
	if !ok {
		return nil, roomRepo.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRooms) List(ctx context.Context) ([]models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Room
	for _, r := range m.rooms {
		out = append(out, *r)
	}
	return out, nil
}

func (m *memRooms) FindCandidates(ctx context.Context, guests int, roomType string) ([]models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Room
	for _, r := range m.rooms {
		if r.Capacity < guests {
			continue
		}
		if roomType != "" && r.Type != roomType {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Capacity < out[j].Capacity })
	return out, nil
}

func (m *memRooms) Upsert(ctx context.Context, room *models.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *room
	m.rooms[room.ID] = &cp
	return nil
}

type memClients struct {
	mu      sync.Mutex
	clients map[string]*models.Client
}

func newMemClients(clients ...models.Client) *memClients {
	m := &memClients{clients: map[string]*models.Client{}}
	for i := range clients {
		cp := clients[i]
		m.clients[cp.ID] = &cp
	}
	return m
}

func (m *memClients) GetByID(ctx context.Context, id string) (*models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok {
		return nil, clientRepo.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memClients) GetByEmail(ctx context.Context, email string) (*models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	norm := clientRepo.NormalizeEmail(email)
	for _, c := range m.clients {
		if c.Email == norm {
			cp := *c
			return &cp, nil
		}
	}
	return nil, clientRepo.ErrNotFound
}

func (m *memClients) UpsertByEmail(ctx context.Context, email, name string) (*models.Client, error) {
	if c, err := m.GetByEmail(ctx, email); err == nil {
		return c, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := &models.Client{
		ID:       uuid.New().String(),
		Email:    clientRepo.NormalizeEmail(email),
		Name:     name,
		Language: "en",
	}
	m.clients[c.ID] = c
	cp := *c
	return &cp, nil
}

// recordingNotifier counts manager alerts.
type recordingNotifier struct {
	mu                  sync.Mutex
	softConflicts       []models.RoomClaim
	ambiguous           []string
	extractionConflicts []string
	unmatched           []models.UnmatchedMessage
}

func (n *recordingNotifier) NotifySoftConflict(ctx context.Context, held, incoming models.RoomClaim) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.softConflicts = append(n.softConflicts, incoming)
	return nil
}

func (n *recordingNotifier) NotifyAmbiguous(ctx context.Context, eventID, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ambiguous = append(n.ambiguous, eventID)
	return nil
}

func (n *recordingNotifier) NotifyExtractionConflict(ctx context.Context, eventID, detail string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.extractionConflicts = append(n.extractionConflicts, eventID)
	return nil
}

func (n *recordingNotifier) NotifyUnmatched(ctx context.Context, msg models.UnmatchedMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.unmatched = append(n.unmatched, msg)
	return nil
}

func (n *recordingNotifier) softConflictCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.softConflicts)
}

// recordingDeliverer records enqueued turn IDs. Setting failures makes the
// next that many enqueues fail.
type recordingDeliverer struct {
	mu       sync.Mutex
	turnIDs  []string
	failures int
}

func (d *recordingDeliverer) EnqueueDelivery(ctx context.Context, turnID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failures > 0 {
		d.failures--
		return errors.New("queue unavailable")
	}
	d.turnIDs = append(d.turnIDs, turnID)
	return nil
}

func (d *recordingDeliverer) deliveries() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.turnIDs...)
}

// stubExtractor returns a fixed sequence of deltas, then empty ones. It
// also records every packet it was handed.
type stubExtractor struct {
	mu      sync.Mutex
	deltas  []models.EventDelta
	calls   int
	packets []models.ContextPacket
}

func (e *stubExtractor) Extract(ctx context.Context, packet models.ContextPacket) (models.EventDelta, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	e.packets = append(e.packets, packet)
	if len(e.deltas) == 0 {
		return models.EventDelta{}, nil
	}
	d := e.deltas[0]
	e.deltas = e.deltas[1:]
	return d, nil
}

func (e *stubExtractor) seenPackets() []models.ContextPacket {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.ContextPacket(nil), e.packets...)
}

// stubDetector returns a fixed route.
type stubDetector struct {
	route models.RouteResult
	err   error
}

func (d *stubDetector) Detect(ctx context.Context, packet models.ContextPacket) (models.RouteResult, error) {
	if d.err != nil {
		return models.RouteResult{}, d.err
	}
	return d.route, nil
}

func intPtr(n int) *int          { return &n }
func strPtr(s string) *string    { return &s }
func boolPtr(b bool) *bool       { return &b }
func floatPtr(f float64) *float64 { return &f }
