// Package session holds one client's state: it follows store snapshots,
// keeps the live drafts and runs conversation operations against explicit
// conversation ids.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/mahader/internal/config"
	"github.com/hpungsan/mahader/internal/drafts"
	"github.com/hpungsan/mahader/internal/errors"
	"github.com/hpungsan/mahader/internal/llm"
	"github.com/hpungsan/mahader/internal/model"
	"github.com/hpungsan/mahader/internal/ops"
)

// Local feedback notices.
const (
	FeedbackSendFailed   = "تعذر إرسال الرسالة. حاول مرة أخرى."
	FeedbackReplyFailed  = "عذراً، حدث خطأ أثناء توليد الرد. حاول مرة أخرى."
	FeedbackNoCredential = "لم يتم ضبط مفتاح خدمة التوليد. أضف api_key إلى الإعدادات."
	FeedbackSaveFailed   = "تعذر حفظ التقرير. حاول مرة أخرى."
	FeedbackMirrorFailed = "تم حفظ التقرير، لكن تعذر تحديث بيانات المحادثة."
)

// Store is the document store with snapshot subscriptions.
type Store interface {
	ops.Store
	SubscribeConversations(ctx context.Context) (<-chan []model.Conversation, error)
	SubscribeMessages(ctx context.Context, conversationID string) (<-chan []model.Message, error)
}

// Session is one client of the store.
type Session struct {
	store  Store
	gen    llm.Generator
	cfg    *config.Config
	logger *log.Logger
	drafts *drafts.Pipeline

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	state     State
	selCancel context.CancelFunc
}

// New creates a session. Call Start to follow the conversation list.
func New(store Store, gen llm.Generator, cfg *config.Config, logger *log.Logger) *Session {
	if logger == nil {
		logger = config.DiscardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		store:  store,
		gen:    gen,
		cfg:    cfg,
		logger: logger.With("component", "session"),
		ctx:    ctx,
		cancel: cancel,
	}
	s.drafts = drafts.New(gen, cfg, logger, s.applyDraft)
	return s
}

// Start subscribes to the conversation list.
func (s *Session) Start() error {
	ch, err := s.store.SubscribeConversations(s.ctx)
	if err != nil {
		return err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for snap := range ch {
			s.update(func(st State) State { return ReduceConversations(st, snap) })
		}
	}()
	return nil
}

// Close stops subscriptions and in-flight background drafts.
func (s *Session) Close() {
	s.cancel()
	s.drafts.Close()
	s.wg.Wait()
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) update(f func(State) State) {
	s.mu.Lock()
	s.state = f(s.state)
	s.mu.Unlock()
}

// Select makes id the selected conversation and follows its messages.
// Every message snapshot schedules a draft regeneration.
func (s *Session) Select(ctx context.Context, id string) (*model.Conversation, error) {
	c, err := ops.GetConversation(ctx, s.store, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.selCancel != nil {
		s.selCancel()
	}
	subCtx, cancel := context.WithCancel(s.ctx)
	s.selCancel = cancel
	s.state = SelectLocal(UpsertLocal(s.state, *c), c.ID)
	s.mu.Unlock()

	ch, err := s.store.SubscribeMessages(subCtx, c.ID)
	if err != nil {
		cancel()
		return nil, err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.follow(c.ID, ch)
	}()
	return c, nil
}

func (s *Session) follow(id string, ch <-chan []model.Message) {
	for snap := range ch {
		s.mu.Lock()
		if s.state.Selected != id {
			s.mu.Unlock()
			continue
		}
		s.state = ReduceMessages(s.state, id, snap)
		conv, ok := s.state.Conversation(id)
		s.mu.Unlock()

		if ok {
			s.drafts.Trigger(conv, snap)
		}
	}
}

// applyDraft is the draft pipeline's sink.
func (s *Session) applyDraft(id, draft string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := ApplyDraft(s.state, id, draft)
	if !ok {
		s.logger.Debug("draft for unselected conversation dropped", "conversation", id)
		return
	}
	s.state = st
}

// Create creates a conversation and selects it.
func (s *Session) Create(ctx context.Context, input ops.CreateConversationInput) (*ops.CreateConversationOutput, error) {
	out, err := ops.CreateConversation(ctx, s.store, s.cfg, input)
	if err != nil {
		return nil, err
	}
	s.update(func(st State) State { return UpsertLocal(st, out.Conversation) })
	if _, err := s.Select(ctx, out.Conversation.ID); err != nil {
		return nil, err
	}
	return out, nil
}

// SetPersona changes the persona of conversation id while it is unlocked.
func (s *Session) SetPersona(ctx context.Context, id, p string) (*model.Conversation, error) {
	c, err := ops.SetPersona(ctx, s.store, ops.SetPersonaInput{ID: id, Persona: p})
	if err != nil {
		return nil, err
	}
	s.update(func(st State) State { return UpsertLocal(st, *c) })
	return c, nil
}

// SendInput contains parameters for Send.
type SendInput struct {
	ConversationID string
	Content        string
	Attachment     *model.Attachment
}

// SendOutput contains the stored user message and the assistant's reply.
// Reply is nil when the reply could not be generated; Feedback then holds
// the notice shown instead.
type SendOutput struct {
	Message  model.Message  `json:"message"`
	Reply    *model.Message `json:"reply,omitempty"`
	Feedback string         `json:"feedback,omitempty"`
}

// Send appends a user message to conversation id, then asks the generator
// for an assistant reply and stores it. A failed reply leaves a local
// feedback notice and is not an error.
func (s *Session) Send(ctx context.Context, input SendInput) (*SendOutput, error) {
	id := strings.TrimSpace(input.ConversationID)
	if id == "" {
		return nil, errors.NewInvalidRequest("conversation id is required")
	}

	s.update(func(st State) State {
		return AppendLocal(st, model.Message{
			ID:             localID(),
			ConversationID: id,
			Type:           model.MessageUser,
			Content:        input.Content,
			Attachment:     input.Attachment,
			Timestamp:      time.Now().UnixMilli(),
		})
	})

	sent, err := ops.AppendMessage(ctx, s.store, s.cfg, ops.AppendMessageInput{
		ConversationID: id,
		Type:           model.MessageUser,
		Content:        input.Content,
		Attachment:     input.Attachment,
	})
	if err != nil {
		s.feedback(id, FeedbackSendFailed)
		return nil, err
	}
	s.update(func(st State) State { return UpsertLocal(st, sent.Conversation) })

	out := &SendOutput{Message: sent.Message}
	reply, err := s.reply(ctx, sent.Conversation)
	if err != nil {
		notice := FeedbackReplyFailed
		if errors.Is(err, errors.ErrMissingCredential) {
			notice = FeedbackNoCredential
		}
		s.logger.Warn("assistant reply failed", "conversation", id, "err", err)
		s.feedback(id, notice)
		out.Feedback = notice
		return out, nil
	}
	out.Reply = reply
	return out, nil
}

func (s *Session) reply(ctx context.Context, c model.Conversation) (*model.Message, error) {
	if !s.gen.HasCredential() {
		return nil, llm.ErrMissingCredential
	}
	msgs, err := s.store.ListMessages(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	req := llm.Request{
		Model:       s.cfg.Model,
		Messages:    append([]llm.Message{{Role: llm.RoleSystem, Content: c.Persona.ChatPrompt()}}, drafts.Transcript(msgs)...),
		Temperature: s.cfg.Temperature,
	}
	text, err := s.gen.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	stored, err := ops.AppendMessage(ctx, s.store, s.cfg, ops.AppendMessageInput{
		ConversationID: c.ID,
		Type:           model.MessageAssistant,
		Content:        text,
	})
	if err != nil {
		return nil, err
	}
	s.update(func(st State) State { return UpsertLocal(st, stored.Conversation) })
	return &stored.Message, nil
}

func (s *Session) feedback(id, text string) {
	s.update(func(st State) State {
		return AddFeedback(st, model.Message{
			ID:             localID(),
			ConversationID: id,
			Type:           model.MessageAssistant,
			Content:        text,
			Timestamp:      time.Now().UnixMilli(),
		})
	})
}

// Draft returns the live draft of conversation id.
func (s *Session) Draft(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Drafts[id]
}

// SetDraft replaces the live draft of conversation id with a manual edit.
func (s *Session) SetDraft(id, draft string) {
	s.update(func(st State) State { return WithDraft(st, id, draft) })
}

// GenerateDraft regenerates the draft of conversation id now. The result
// replaces the live draft only if id is still selected when it arrives.
func (s *Session) GenerateDraft(ctx context.Context, id string) (string, error) {
	c, err := ops.GetConversation(ctx, s.store, id)
	if err != nil {
		return "", err
	}
	msgs, err := s.store.ListMessages(ctx, c.ID)
	if err != nil {
		return "", err
	}
	if len(msgs) == 0 {
		return "", errors.NewInvalidRequest("conversation has no messages")
	}
	return s.drafts.GenerateNow(ctx, *c, msgs)
}

// SaveReport saves the live draft of conversation id. An empty draft is a
// no-op that writes nothing.
func (s *Session) SaveReport(ctx context.Context, id, status string) (*ops.SaveReportOutput, error) {
	out, err := ops.SaveReport(ctx, s.store, ops.SaveReportInput{
		ConversationID: id,
		Draft:          s.Draft(id),
		Status:         status,
	})
	if err != nil {
		if errors.Is(err, errors.ErrMirrorFailed) {
			s.feedback(id, FeedbackMirrorFailed)
		} else {
			s.feedback(id, FeedbackSaveFailed)
		}
		s.logger.Warn("save report failed", "conversation", id, "err", err)
		return out, err
	}
	if out.Conversation != nil {
		s.update(func(st State) State { return UpsertLocal(st, *out.Conversation) })
	}
	return out, nil
}

// Rename sets the base title of conversation id.
func (s *Session) Rename(ctx context.Context, id, title string) (*model.Conversation, error) {
	c, err := ops.RenameConversation(ctx, s.store, ops.RenameConversationInput{ID: id, Title: title})
	if err != nil {
		return nil, err
	}
	s.update(func(st State) State { return UpsertLocal(st, *c) })
	return c, nil
}

// Delete deletes conversation id with its messages and report.
func (s *Session) Delete(ctx context.Context, id string) (*ops.DeleteConversationOutput, error) {
	out, err := ops.DeleteConversation(ctx, s.store, id)
	if out == nil {
		return nil, err
	}
	s.drafts.Forget(out.ID)

	s.mu.Lock()
	if s.state.Selected == out.ID && s.selCancel != nil {
		s.selCancel()
		s.selCancel = nil
	}
	s.state = RemoveLocal(s.state, out.ID)
	s.mu.Unlock()

	return out, err
}

func localID() string {
	return "local-" + ulid.Make().String()
}
