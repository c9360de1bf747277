package session

import (
	"maps"
	"slices"

	"github.com/hpungsan/mahader/internal/model"
)

// State is one client's view of the store. A State is never modified in
// place: every reducer returns a new value, so a State handed out by
// Session.State stays valid.
type State struct {
	// Conversations is the latest conversation list, newest update first.
	Conversations []model.Conversation

	// Selected is the conversation shown to the user ("" for none).
	Selected string

	// Messages is the selected conversation's transcript. It may briefly
	// hold an optimistic local copy next to the stored message.
	Messages []model.Message

	// Feedback holds local assistant-style notices that are never stored.
	Feedback []model.Message

	// Drafts maps conversation id to its live, unsaved draft.
	Drafts map[string]string
}

// Conversation returns the conversation with id from the list.
func (st State) Conversation(id string) (model.Conversation, bool) {
	i := slices.IndexFunc(st.Conversations, func(c model.Conversation) bool { return c.ID == id })
	if i < 0 {
		return model.Conversation{}, false
	}
	return st.Conversations[i], true
}

// Transcript returns the selected conversation's messages followed by its
// feedback notices.
func (st State) Transcript() []model.Message {
	out := slices.Clone(st.Messages)
	for _, f := range st.Feedback {
		if f.ConversationID == st.Selected {
			out = append(out, f)
		}
	}
	return out
}

// ReduceConversations replaces the conversation list with a store snapshot.
// A local copy newer than the snapshot's is kept, so a write's result is
// not undone by a snapshot taken before it.
func ReduceConversations(st State, snap []model.Conversation) State {
	list := slices.Clone(snap)
	for i, c := range list {
		if local, ok := st.Conversation(c.ID); ok && local.UpdatedAt > c.UpdatedAt {
			list[i] = local
		}
	}
	st.Conversations = list
	return st
}

// ReduceMessages replaces the transcript with a store snapshot of
// conversation id. Snapshots of any other conversation are ignored.
func ReduceMessages(st State, id string, snap []model.Message) State {
	if id == "" || st.Selected != id {
		return st
	}
	st.Messages = slices.Clone(snap)
	return st
}

// UpsertLocal applies a conversation returned by a write before the next
// snapshot arrives. An older copy never replaces a newer one.
func UpsertLocal(st State, c model.Conversation) State {
	list := slices.Clone(st.Conversations)
	i := slices.IndexFunc(list, func(x model.Conversation) bool { return x.ID == c.ID })
	switch {
	case i < 0:
		list = append([]model.Conversation{c}, list...)
	case list[i].UpdatedAt <= c.UpdatedAt:
		list[i] = c
	}
	st.Conversations = list
	return st
}

// AppendLocal appends an optimistic message to the selected transcript.
func AppendLocal(st State, m model.Message) State {
	if m.ConversationID != st.Selected {
		return st
	}
	st.Messages = append(slices.Clone(st.Messages), m)
	return st
}

// RemoveLocal drops a deleted conversation with its draft and feedback,
// clearing the selection if it was selected.
func RemoveLocal(st State, id string) State {
	st.Conversations = slices.DeleteFunc(slices.Clone(st.Conversations),
		func(c model.Conversation) bool { return c.ID == id })
	st.Feedback = slices.DeleteFunc(slices.Clone(st.Feedback),
		func(m model.Message) bool { return m.ConversationID == id })
	if _, ok := st.Drafts[id]; ok {
		st.Drafts = maps.Clone(st.Drafts)
		delete(st.Drafts, id)
	}
	if st.Selected == id {
		st.Selected = ""
		st.Messages = nil
	}
	return st
}

// SelectLocal switches the selected conversation. The transcript is empty
// until the conversation's first message snapshot.
func SelectLocal(st State, id string) State {
	if st.Selected == id {
		return st
	}
	st.Selected = id
	st.Messages = nil
	return st
}

// AddFeedback appends a local notice.
func AddFeedback(st State, m model.Message) State {
	st.Feedback = append(slices.Clone(st.Feedback), m)
	return st
}

// WithDraft sets the live draft of conversation id.
func WithDraft(st State, id, draft string) State {
	drafts := maps.Clone(st.Drafts)
	if drafts == nil {
		drafts = map[string]string{}
	}
	drafts[id] = draft
	st.Drafts = drafts
	return st
}

// ApplyDraft sets a generated draft only while its conversation is
// selected, reporting whether it was applied.
func ApplyDraft(st State, id, draft string) (State, bool) {
	if id == "" || st.Selected != id {
		return st, false
	}
	return WithDraft(st, id, draft), true
}
