package model

// Turn is a single utterance within a session. Ordering is insertion
// order and is chronologically significant.
type Turn struct {
	ID      string `json:"turn_id"`
	Speaker string `json:"speaker"`
	Content string `json:"content"`
}

// Table is one normalized relation extracted from source data, e.g. a
// financial metric series. Every row shares the header set.
type Table struct {
	Headers []string         `json:"headers"`
	Rows    []map[string]any `json:"rows"`
}

// Session is one contiguous interaction within a conversation. A session
// is either conversational (turns populated) or tabular (tables
// populated); rendering branches on which is present.
type Session struct {
	ID           string   `json:"session_id"`
	Time         string   `json:"time"`
	Participants []string `json:"participants"`
	Turns        []Turn   `json:"turns,omitempty"`
	Tables       []Table  `json:"tables,omitempty"`
}

// Tabular reports whether the session carries structured tables rather
// than dialogue turns.
func (s *Session) Tabular() bool {
	return len(s.Tables) > 0
}

// Conversation groups the sessions belonging to one set of speakers.
// Sessions are owned exclusively and never shared across conversations.
type Conversation struct {
	ID       string    `json:"conversation_id"`
	Speakers []string  `json:"speakers"`
	Sessions []Session `json:"sessions"`
}

// FindSession returns the session with the given id, or nil.
func (c *Conversation) FindSession(id string) *Session {
	for i := range c.Sessions {
		if c.Sessions[i].ID == id {
			return &c.Sessions[i]
		}
	}
	return nil
}

// Dataset is the root container, loaded once per run and read-only
// during generation.
type Dataset struct {
	Conversations []Conversation `json:"conversations"`
}

// FindConversation returns the conversation with the given id, or nil.
func (d *Dataset) FindConversation(id string) *Conversation {
	for i := range d.Conversations {
		if d.Conversations[i].ID == id {
			return &d.Conversations[i]
		}
	}
	return nil
}
