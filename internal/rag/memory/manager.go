package memory

import (
	"sync"
	"time"
)

type Turn struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	At       time.Time `json:"at"`
}

type EntityTable struct {
	Values        map[Category][]string `json:"values"`
	LastMentioned map[Category]string   `json:"last_mentioned"`
}

func newEntityTable() EntityTable {
	return EntityTable{Values: make(map[Category][]string), LastMentioned: make(map[Category]string)}
}

func (e EntityTable) Empty() bool {
	for _, vals := range e.Values {
		if len(vals) > 0 {
			return false
		}
	}
	return true
}

func (e EntityTable) clone() EntityTable {
	out := newEntityTable()
	for cat, vals := range e.Values {
		out.Values[cat] = append([]string(nil), vals...)
	}
	for cat, v := range e.LastMentioned {
		out.LastMentioned[cat] = v
	}
	return out
}

// Context is a detached snapshot; callers may keep or modify it freely.
type Context struct {
	History  []Turn      `json:"history"`
	Entities EntityTable `json:"entities"`
}

func (c Context) LastTurn() (Turn, bool) {
	if len(c.History) == 0 {
		return Turn{}, false
	}
	return c.History[len(c.History)-1], true
}

type Manager struct {
	mu        sync.Mutex
	maxTurns  int
	extractor Extractor
	history   []Turn
	entities  EntityTable
}

func NewManager(maxTurns int, extractor Extractor) *Manager {
	if maxTurns < 1 {
		maxTurns = 1
	}
	if extractor == nil {
		extractor = NewPatternExtractor()
	}
	return &Manager{
		maxTurns:  maxTurns,
		extractor: extractor,
		entities:  newEntityTable(),
	}
}

func (m *Manager) Context() Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Context{
		History:  append([]Turn(nil), m.history...),
		Entities: m.entities.clone(),
	}
}

// Extract runs the configured extractor over the question and then the answer.
func (m *Manager) Extract(question, answer string) (Fragment, Fragment) {
	return m.extractor.Extract(question), m.extractor.Extract(answer)
}

// Record extracts entities from both sides of the turn and stores it.
func (m *Manager) Record(question, answer string) {
	q, a := m.Extract(question, answer)
	m.Update(question, answer, q, a)
}

// Update appends the turn, evicting the oldest turns past capacity, then merges each fragment in order.
func (m *Manager) Update(question, answer string, fragments ...Fragment) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = append(m.history, Turn{Question: question, Answer: answer, At: time.Now()})
	if over := len(m.history) - m.maxTurns; over > 0 {
		m.history = append([]Turn(nil), m.history[over:]...)
	}
	for _, f := range fragments {
		m.merge(f)
	}
}

// merge appends unseen values and points last_mentioned at the final value of each category in f,
// whether or not that value was new.
func (m *Manager) merge(f Fragment) {
	for _, cat := range Categories {
		vals := f[cat]
		if len(vals) == 0 {
			continue
		}
		for _, v := range vals {
			if !contains(m.entities.Values[cat], v) {
				m.entities.Values[cat] = append(m.entities.Values[cat], v)
			}
		}
		m.entities.LastMentioned[cat] = vals[len(vals)-1]
	}
}

func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = nil
	m.entities = newEntityTable()
}

func contains(vals []string, v string) bool {
	for _, x := range vals {
		if x == v {
			return true
		}
	}
	return false
}
