// Package drafts regenerates a conversation's live report draft from its
// transcript, debounced per conversation.
package drafts

import (
	"context"
	"sync"

	"github.com/bep/debounce"
	"github.com/charmbracelet/log"

	"github.com/hpungsan/mahader/internal/config"
	"github.com/hpungsan/mahader/internal/llm"
	"github.com/hpungsan/mahader/internal/model"
	"github.com/hpungsan/mahader/internal/persona"
)

// Sink receives a generated draft for a conversation. It replaces the live
// draft wholesale.
type Sink func(conversationID, draft string)

// Pipeline debounces draft regeneration per conversation and fences
// responses so an older request never overwrites a newer one.
type Pipeline struct {
	gen    llm.Generator
	cfg    *config.Config
	logger *log.Logger
	sink   Sink

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	convs map[string]*convState
	seq   uint64
	// forgotten holds, per forgotten conversation, the lowest sequence
	// number still allowed to deliver.
	forgotten map[string]uint64

	// deliverMu orders the fence check and the sink call.
	deliverMu sync.Mutex
}

type convState struct {
	debounced func(f func())
	issued    uint64
}

// New creates a pipeline delivering drafts to sink.
func New(gen llm.Generator, cfg *config.Config, logger *log.Logger, sink Sink) *Pipeline {
	if logger == nil {
		logger = config.DiscardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		gen:    gen,
		cfg:    cfg,
		logger: logger.With("component", "drafts"),
		sink:   sink,
		ctx:    ctx,
		cancel: cancel,
		convs:  map[string]*convState{},

		forgotten: map[string]uint64{},
	}
}

// Enabled reports whether automatic drafting can run at all.
func (p *Pipeline) Enabled() bool {
	return !p.cfg.DisableAutoDraft && p.gen.HasCredential()
}

// Trigger schedules a regeneration for conv after the debounce window. Only
// the last trigger within a window fires. It is a no-op when automatic
// drafting is disabled, no credential is configured, or msgs is empty.
// Returns whether a regeneration was scheduled.
func (p *Pipeline) Trigger(conv model.Conversation, msgs []model.Message) bool {
	if !p.Enabled() || len(msgs) == 0 || conv.ID == "" {
		return false
	}
	snapshot := append([]model.Message(nil), msgs...)

	st := p.state(conv.ID)
	st.debounced(func() {
		seq := p.issue(conv.ID)
		draft, err := p.generate(p.ctx, conv.Persona, snapshot)
		if err != nil {
			p.logger.Debug("draft generation failed", "conversation", conv.ID, "seq", seq, "err", err)
			return
		}
		p.deliver(conv.ID, seq, draft)
	})
	return true
}

// GenerateNow generates a draft synchronously and delivers it through the
// same fence as debounced requests. Errors are returned to the caller.
func (p *Pipeline) GenerateNow(ctx context.Context, conv model.Conversation, msgs []model.Message) (string, error) {
	if !p.gen.HasCredential() {
		return "", llm.ErrMissingCredential
	}
	seq := p.issue(conv.ID)
	draft, err := p.generate(ctx, conv.Persona, msgs)
	if err != nil {
		return "", err
	}
	p.deliver(conv.ID, seq, draft)
	return draft, nil
}

// Forget drops per-conversation state. Pending timers still fire, but
// responses to requests issued before Forget are never delivered.
func (p *Pipeline) Forget(conversationID string) {
	p.mu.Lock()
	delete(p.convs, conversationID)
	p.forgotten[conversationID] = p.seq + 1
	p.mu.Unlock()
}

// Close cancels in-flight background requests.
func (p *Pipeline) Close() {
	p.cancel()
}

func (p *Pipeline) state(conversationID string) *convState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateLocked(conversationID)
}

// issue returns the next request sequence number for a conversation.
// Numbers come from one counter so they are never reused.
func (p *Pipeline) issue(conversationID string) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.stateLocked(conversationID)
	p.seq++
	st.issued = p.seq
	delete(p.forgotten, conversationID)
	return st.issued
}

func (p *Pipeline) stateLocked(conversationID string) *convState {
	st, ok := p.convs[conversationID]
	if !ok {
		st = &convState{debounced: debounce.New(p.cfg.DraftDebounce())}
		p.convs[conversationID] = st
	}
	return st
}

// deliver hands draft to the sink unless a newer request was issued since
// seq. With unfenced drafts every response is delivered in resolution order.
func (p *Pipeline) deliver(conversationID string, seq uint64, draft string) {
	p.deliverMu.Lock()
	defer p.deliverMu.Unlock()

	if !p.cfg.UnfencedDrafts {
		p.mu.Lock()
		latest := p.forgotten[conversationID]
		if st, ok := p.convs[conversationID]; ok && st.issued > latest {
			latest = st.issued
		}
		p.mu.Unlock()
		if seq < latest {
			p.logger.Debug("stale draft discarded", "conversation", conversationID, "seq", seq, "latest", latest)
			return
		}
	}
	if p.sink != nil {
		p.sink(conversationID, draft)
	}
}

func (p *Pipeline) generate(ctx context.Context, pers persona.Persona, msgs []model.Message) (string, error) {
	return p.gen.Generate(ctx, BuildRequest(p.cfg, pers, msgs))
}
