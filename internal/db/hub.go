package db

import (
	"context"
	"sync"

	"github.com/hpungsan/mahader/internal/model"
)

// hub tracks snapshot subscribers. Each subscriber channel has a buffer of
// one; a newer snapshot replaces an undelivered older one.
type hub struct {
	// pub serializes snapshot query and delivery so subscribers see
	// snapshots in write order.
	pub sync.Mutex

	mu       sync.Mutex
	next     int
	convs    map[int]chan []model.Conversation
	messages map[string]map[int]chan []model.Message
}

func newHub() *hub {
	return &hub{
		convs:    map[int]chan []model.Conversation{},
		messages: map[string]map[int]chan []model.Message{},
	}
}

// offer delivers v, dropping an undelivered older value if needed.
func offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// SubscribeConversations returns a channel of conversation snapshots ordered
// by updated_at descending. Snapshots are shared between subscribers and
// must not be modified. The current snapshot is delivered immediately;
// the channel is closed when ctx ends.
func (s *Store) SubscribeConversations(ctx context.Context) (<-chan []model.Conversation, error) {
	h := s.hub
	h.pub.Lock()
	defer h.pub.Unlock()

	snap, _, err := s.ListConversations(ctx, 0, 0)
	if err != nil {
		return nil, err
	}

	ch := make(chan []model.Conversation, 1)
	ch <- snap

	h.mu.Lock()
	id := h.next
	h.next++
	h.convs[id] = ch
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.convs, id)
		close(ch)
		h.mu.Unlock()
	}()
	return ch, nil
}

// SubscribeMessages returns a channel of message snapshots for one
// conversation in creation order. Same delivery rules as
// SubscribeConversations.
func (s *Store) SubscribeMessages(ctx context.Context, conversationID string) (<-chan []model.Message, error) {
	h := s.hub
	h.pub.Lock()
	defer h.pub.Unlock()

	snap, err := s.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	ch := make(chan []model.Message, 1)
	ch <- snap

	h.mu.Lock()
	id := h.next
	h.next++
	if h.messages[conversationID] == nil {
		h.messages[conversationID] = map[int]chan []model.Message{}
	}
	h.messages[conversationID][id] = ch
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		subs := h.messages[conversationID]
		delete(subs, id)
		if len(subs) == 0 {
			delete(h.messages, conversationID)
		}
		close(ch)
		h.mu.Unlock()
	}()
	return ch, nil
}

func (h *hub) hasConversationSubs() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.convs) > 0
}

func (h *hub) hasMessageSubs(conversationID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages[conversationID]) > 0
}

// publishConversations pushes the current conversation list to subscribers.
// Snapshot failures are dropped; the next write publishes again.
func (s *Store) publishConversations(ctx context.Context) {
	h := s.hub
	if !h.hasConversationSubs() {
		return
	}
	h.pub.Lock()
	defer h.pub.Unlock()

	snap, _, err := s.ListConversations(context.WithoutCancel(ctx), 0, 0)
	if err != nil {
		return
	}
	h.mu.Lock()
	for _, ch := range h.convs {
		offer(ch, snap)
	}
	h.mu.Unlock()
}

// publishMessages pushes a conversation's message list to its subscribers.
func (s *Store) publishMessages(ctx context.Context, conversationID string) {
	h := s.hub
	if !h.hasMessageSubs(conversationID) {
		return
	}
	h.pub.Lock()
	defer h.pub.Unlock()

	snap, err := s.ListMessages(context.WithoutCancel(ctx), conversationID)
	if err != nil {
		return
	}
	h.mu.Lock()
	for _, ch := range h.messages[conversationID] {
		offer(ch, snap)
	}
	h.mu.Unlock()
}
