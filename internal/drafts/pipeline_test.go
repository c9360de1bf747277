package drafts

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/mahader/internal/config"
	"github.com/hpungsan/mahader/internal/llm"
	"github.com/hpungsan/mahader/internal/model"
	"github.com/hpungsan/mahader/internal/persona"
)

// gatedGenerator blocks each call until the test releases it, so tests can
// choose the order in which responses resolve.
type gatedGenerator struct {
	mu       sync.Mutex
	calls    []llm.Request
	gates    []chan struct{}
	gated    bool
	noCred   bool
	failWith error
}

func (g *gatedGenerator) HasCredential() bool { return !g.noCred }

func (g *gatedGenerator) Generate(ctx context.Context, req llm.Request) (string, error) {
	g.mu.Lock()
	n := len(g.calls)
	g.calls = append(g.calls, req)
	gate := make(chan struct{})
	g.gates = append(g.gates, gate)
	gated := g.gated
	g.mu.Unlock()

	if gated {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if g.failWith != nil {
		return "", g.failWith
	}
	return fmt.Sprintf("# draft %d", n+1), nil
}

func (g *gatedGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func (g *gatedGenerator) release(i int) {
	g.mu.Lock()
	gate := g.gates[i]
	g.mu.Unlock()
	close(gate)
}

func (g *gatedGenerator) request(i int) llm.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[i]
}

// recorder is a Sink that keeps every delivered draft.
type recorder struct {
	mu     sync.Mutex
	drafts []string
}

func (r *recorder) sink(_ string, draft string) {
	r.mu.Lock()
	r.drafts = append(r.drafts, draft)
	r.mu.Unlock()
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.drafts...)
}

func (r *recorder) last() string {
	all := r.all()
	if len(all) == 0 {
		return ""
	}
	return all[len(all)-1]
}

func testConfig(debounceMS int) *config.Config {
	cfg := config.DefaultConfig()
	cfg.APIKey = "test"
	cfg.DraftDebounceMS = debounceMS
	return cfg
}

var legalConv = model.Conversation{ID: "c1", Persona: persona.Legal}

func msgs(contents ...string) []model.Message {
	out := make([]model.Message, len(contents))
	for i, c := range contents {
		out[i] = model.Message{ConversationID: "c1", Type: model.MessageUser, Content: c}
	}
	return out
}

func TestTrigger_Gates(t *testing.T) {
	rec := &recorder{}

	p := New(&gatedGenerator{}, testConfig(10), nil, rec.sink)
	require.False(t, p.Trigger(legalConv, nil), "empty transcript")

	cfg := testConfig(10)
	cfg.DisableAutoDraft = true
	p = New(&gatedGenerator{}, cfg, nil, rec.sink)
	require.False(t, p.Trigger(legalConv, msgs("x")), "auto draft disabled")

	gen := &gatedGenerator{noCred: true}
	p = New(gen, testConfig(10), nil, rec.sink)
	require.False(t, p.Trigger(legalConv, msgs("x")), "no credential")

	time.Sleep(50 * time.Millisecond)
	require.Zero(t, gen.callCount())
	require.Empty(t, rec.all())
}

func TestTrigger_DebounceCoalesces(t *testing.T) {
	gen := &gatedGenerator{}
	rec := &recorder{}
	p := New(gen, testConfig(60), nil, rec.sink)
	defer p.Close()

	require.True(t, p.Trigger(legalConv, msgs("1")))
	require.True(t, p.Trigger(legalConv, msgs("1", "2")))
	require.True(t, p.Trigger(legalConv, msgs("1", "2", "3")))

	require.Eventually(t, func() bool { return len(rec.all()) == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(120 * time.Millisecond)
	require.Equal(t, 1, gen.callCount(), "only the last trigger in the window fires")

	// System prompt + 3 transcript messages + trailing instruction.
	req := gen.request(0)
	require.Len(t, req.Messages, 5)
	require.Equal(t, "3", req.Messages[3].Content)
	require.Equal(t, "# draft 1", rec.last())
}

func TestTrigger_PerConversationWindows(t *testing.T) {
	gen := &gatedGenerator{}
	rec := &recorder{}
	p := New(gen, testConfig(30), nil, rec.sink)
	defer p.Close()

	other := model.Conversation{ID: "c2", Persona: persona.General}
	p.Trigger(legalConv, msgs("a"))
	p.Trigger(other, msgs("b"))

	require.Eventually(t, func() bool { return len(rec.all()) == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestTrigger_FailureIsSilent(t *testing.T) {
	gen := &gatedGenerator{failWith: fmt.Errorf("HTTP 500")}
	rec := &recorder{}
	p := New(gen, testConfig(10), nil, rec.sink)
	defer p.Close()

	p.Trigger(legalConv, msgs("x"))
	require.Eventually(t, func() bool { return gen.callCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	require.Empty(t, rec.all())
}

// racingResponses fires two debounce windows and resolves the later request
// first, returning the sink's deliveries.
func racingResponses(t *testing.T, unfenced bool) []string {
	t.Helper()
	gen := &gatedGenerator{gated: true}
	rec := &recorder{}
	cfg := testConfig(10)
	cfg.UnfencedDrafts = unfenced
	p := New(gen, cfg, nil, rec.sink)
	t.Cleanup(p.Close)

	p.Trigger(legalConv, msgs("1"))
	require.Eventually(t, func() bool { return gen.callCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	p.Trigger(legalConv, msgs("1", "2"))
	require.Eventually(t, func() bool { return gen.callCount() == 2 }, 2*time.Second, 5*time.Millisecond)

	// Later request resolves first.
	gen.release(1)
	require.Eventually(t, func() bool { return len(rec.all()) == 1 }, 2*time.Second, 5*time.Millisecond)

	gen.release(0)
	time.Sleep(50 * time.Millisecond)
	return rec.all()
}

func TestTrigger_UnfencedLastResolvedWins(t *testing.T) {
	delivered := racingResponses(t, true)
	require.Equal(t, []string{"# draft 2", "# draft 1"}, delivered)
	// The displayed draft is the stale response of the earlier request.
	require.Equal(t, "# draft 1", delivered[len(delivered)-1])
}

func TestTrigger_FencedDiscardsStale(t *testing.T) {
	delivered := racingResponses(t, false)
	require.Equal(t, []string{"# draft 2"}, delivered)
}

func TestForget_DropsInFlightResponse(t *testing.T) {
	gen := &gatedGenerator{gated: true}
	rec := &recorder{}
	p := New(gen, testConfig(10), nil, rec.sink)
	defer p.Close()

	p.Trigger(legalConv, msgs("1"))
	require.Eventually(t, func() bool { return gen.callCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	p.Forget(legalConv.ID)
	gen.release(0)
	time.Sleep(50 * time.Millisecond)
	require.Empty(t, rec.all())
}

func TestForget_OlderResponseStaysStaleAfterRetrigger(t *testing.T) {
	gen := &gatedGenerator{gated: true}
	rec := &recorder{}
	p := New(gen, testConfig(10), nil, rec.sink)
	defer p.Close()

	p.Trigger(legalConv, msgs("1"))
	require.Eventually(t, func() bool { return gen.callCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	gen.release(0)
	require.Eventually(t, func() bool { return len(rec.all()) == 1 }, 2*time.Second, 5*time.Millisecond)

	p.Trigger(legalConv, msgs("1", "2"))
	require.Eventually(t, func() bool { return gen.callCount() == 2 }, 2*time.Second, 5*time.Millisecond)

	p.Forget(legalConv.ID)
	p.Trigger(legalConv, msgs("3"))
	require.Eventually(t, func() bool { return gen.callCount() == 3 }, 2*time.Second, 5*time.Millisecond)

	gen.release(2)
	require.Eventually(t, func() bool { return len(rec.all()) == 2 }, 2*time.Second, 5*time.Millisecond)

	// Issued before Forget, resolves last.
	gen.release(1)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, []string{"# draft 1", "# draft 3"}, rec.all())
}

func TestGenerateNow(t *testing.T) {
	gen := &gatedGenerator{}
	rec := &recorder{}
	p := New(gen, testConfig(10), nil, rec.sink)

	draft, err := p.GenerateNow(context.Background(), legalConv, msgs("x"))
	require.NoError(t, err)
	require.Equal(t, "# draft 1", draft)
	require.Equal(t, []string{"# draft 1"}, rec.all())

	p = New(&gatedGenerator{noCred: true}, testConfig(10), nil, rec.sink)
	_, err = p.GenerateNow(context.Background(), legalConv, msgs("x"))
	require.ErrorIs(t, err, llm.ErrMissingCredential)

	p = New(&gatedGenerator{failWith: fmt.Errorf("boom")}, testConfig(10), nil, rec.sink)
	_, err = p.GenerateNow(context.Background(), legalConv, msgs("x"))
	require.Error(t, err)
}

func TestBuildRequest(t *testing.T) {
	cfg := testConfig(10)
	cfg.Temperature = 0.2
	history := []model.Message{
		{Type: model.MessageAssistant, Content: "مرحباً"},
		{Type: model.MessageUser, Content: "تم سرقة سيارتي"},
		{Type: model.MessageUser, Attachment: &model.Attachment{Name: "صورة.png"}},
	}

	req := BuildRequest(cfg, persona.Legal, history)
	require.Equal(t, cfg.Model, req.Model)
	require.InDelta(t, 0.2, req.Temperature, 1e-9)
	require.Len(t, req.Messages, 5)

	require.Equal(t, llm.RoleSystem, req.Messages[0].Role)
	require.Equal(t, persona.Legal.DraftPrompt(), req.Messages[0].Content)
	require.Equal(t, llm.RoleAssistant, req.Messages[1].Role)
	require.Equal(t, llm.RoleUser, req.Messages[2].Role)
	require.Equal(t, "[مرفق: صورة.png]", req.Messages[3].Content)
	require.Equal(t, llm.Message{Role: llm.RoleUser, Content: persona.DraftInstruction()}, req.Messages[4])
}
