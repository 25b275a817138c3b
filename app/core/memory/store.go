package memory

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"surooh/app/core/scoring"
)

var ErrSessionNotFound = errors.New("memory: session not found")

// ContextEntry is one element of a session's rolling conversational context.
type ContextEntry struct {
	Type      string    `json:"type"` // "query", "task_result", ...
	Content   string    `json:"content"`
	Answer    string    `json:"answer,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is a snapshot of one session's context record.
type Session struct {
	ID           string         `json:"session_id"`
	UserID       string         `json:"user_id"`
	Context      []ContextEntry `json:"context"`
	PinnedDocs   []string       `json:"pinned_docs"`
	CreatedAt    time.Time      `json:"created_at"`
	LastActivity time.Time      `json:"last_activity"`
}

// Chunk is an immutable fixed-size slice of a stored document.
type Chunk struct {
	ID        string `json:"chunk_id"`
	Text      string `json:"text"`
	Position  int    `json:"position"` // word offset within the document
	WordCount int    `json:"word_count"`
}

// Document is an ingested reference document with its chunks.
type Document struct {
	ID       string            `json:"doc_id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
	Chunks   []Chunk           `json:"chunks"`
	StoredAt time.Time         `json:"stored_at"`
}

// SearchResult is one ranked chunk hit.
type SearchResult struct {
	DocID    string            `json:"doc_id"`
	ChunkID  string            `json:"chunk_id"`
	Text     string            `json:"text"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata"`
}

// Store holds per-session conversational context and ingested documents.
// Sessions are never destroyed here; retention is an external policy.
type Store struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	documents map[string]*Document

	contextLimit    int
	chunkSizeWords  int
	searchThreshold float64
}

func NewStore(contextLimit int, chunkSizeWords int, searchThreshold float64) *Store {
	if contextLimit <= 0 {
		contextLimit = 50
	}
	if chunkSizeWords <= 0 {
		chunkSizeWords = 512
	}
	if searchThreshold <= 0 || searchThreshold >= 1 {
		searchThreshold = 0.3
	}
	return &Store{
		sessions:        make(map[string]*Session),
		documents:       make(map[string]*Document),
		contextLimit:    contextLimit,
		chunkSizeWords:  chunkSizeWords,
		searchThreshold: searchThreshold,
	}
}

// CreateSession allocates a new session record for the user.
func (s *Store) CreateSession(userID string) string {
	now := time.Now()
	session := &Session{
		ID:           uuid.NewString(),
		UserID:       strings.TrimSpace(userID),
		CreatedAt:    now,
		LastActivity: now,
	}
	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()
	return session.ID
}

// AddToContext appends an entry to the session's context, creating the
// session on first use of the id. Entries beyond the limit evict the
// oldest FIFO.
func (s *Store) AddToContext(sessionID string, entry ContextEntry) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		now := time.Now()
		session = &Session{ID: sessionID, CreatedAt: now}
		s.sessions[sessionID] = session
	}
	session.Context = append(session.Context, entry)
	if overflow := len(session.Context) - s.contextLimit; overflow > 0 {
		session.Context = append([]ContextEntry(nil), session.Context[overflow:]...)
	}
	session.LastActivity = time.Now()
}

// PinDocument attaches a document reference to the session.
func (s *Store) PinDocument(sessionID string, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	for _, pinned := range session.PinnedDocs {
		if pinned == docID {
			return nil
		}
	}
	session.PinnedDocs = append(session.PinnedDocs, docID)
	session.LastActivity = time.Now()
	return nil
}

// Session returns a snapshot of the session record.
func (s *Store) Session(sessionID string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return cloneSession(session), nil
}

// Context returns a copy of the session's context entries, oldest first.
// Unknown sessions yield an empty context, matching first-use semantics.
func (s *Store) Context(sessionID string) []ContextEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	out := make([]ContextEntry, len(session.Context))
	copy(out, session.Context)
	return out
}

// StoreDocument splits content into fixed-size word chunks and stores the
// document. Re-ingesting an existing doc id replaces the stored document
// and regenerates its chunks atomically.
func (s *Store) StoreDocument(docID string, content string, metadata map[string]string) []Chunk {
	chunks := s.chunk(content)
	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}
	doc := &Document{
		ID:       docID,
		Content:  content,
		Metadata: meta,
		Chunks:   chunks,
		StoredAt: time.Now(),
	}

	s.mu.Lock()
	s.documents[docID] = doc
	s.mu.Unlock()

	out := make([]Chunk, len(chunks))
	copy(out, chunks)
	return out
}

// Document returns a snapshot of a stored document.
func (s *Store) Document(docID string) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[docID]
	if !ok {
		return Document{}, false
	}
	return cloneDocument(doc), true
}

// Search scores every chunk of every stored document against the query by
// token overlap, drops results at or below the relevance threshold and
// returns the top k by descending score.
func (s *Store) Search(query string, topK int) []SearchResult {
	if topK <= 0 {
		topK = 3
	}

	s.mu.RLock()
	var results []SearchResult
	for _, doc := range s.documents {
		for _, chunk := range doc.Chunks {
			score := scoring.Similarity(query, chunk.Text)
			if score <= s.searchThreshold {
				continue
			}
			results = append(results, SearchResult{
				DocID:    doc.ID,
				ChunkID:  chunk.ID,
				Text:     previewText(chunk.Text, 200),
				Score:    score,
				Metadata: cloneMeta(doc.Metadata),
			})
		}
	}
	s.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

func (s *Store) Stats() (sessions int, documents int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions), len(s.documents)
}

func (s *Store) chunk(content string) []Chunk {
	words := strings.Fields(content)
	var chunks []Chunk
	for i := 0; i < len(words); i += s.chunkSizeWords {
		end := i + s.chunkSizeWords
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, Chunk{
			ID:        uuid.NewString(),
			Text:      strings.Join(words[i:end], " "),
			Position:  i,
			WordCount: end - i,
		})
	}
	return chunks
}

func cloneSession(session *Session) Session {
	out := *session
	out.Context = make([]ContextEntry, len(session.Context))
	copy(out.Context, session.Context)
	out.PinnedDocs = append([]string(nil), session.PinnedDocs...)
	return out
}

func cloneDocument(doc *Document) Document {
	out := *doc
	out.Metadata = cloneMeta(doc.Metadata)
	out.Chunks = make([]Chunk, len(doc.Chunks))
	copy(out.Chunks, doc.Chunks)
	return out
}

func cloneMeta(meta map[string]string) map[string]string {
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}

func previewText(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
