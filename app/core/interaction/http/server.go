package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"surooh/app/core/audit"
	"surooh/app/core/interaction/gateway"
	"surooh/app/core/knowledge"
	"surooh/app/core/memory"
	"surooh/app/core/orchestrator"
	"surooh/app/pkg/types"
)

const defaultResponseTimeout = 60 * time.Second

// Deps are the control-plane collaborators the HTTP surface exposes.
type Deps struct {
	Orchestrator *orchestrator.Orchestrator
	Memory       *memory.Store
	Knowledge    *knowledge.Store
	Audit        *audit.Log
	Health       func() gateway.HealthStatus
}

// Channel serves the HTTP control plane. Chat requests flow through the
// gateway like any other channel: the query handler parks a pending reply
// slot keyed by request id and Send resolves it.
type Channel struct {
	port            int
	deps            Deps
	responseTimeout time.Duration

	mu      sync.Mutex
	pending map[string]chan types.Message
}

func NewChannel(port int, deps Deps) *Channel {
	if port <= 0 {
		port = 8080
	}
	return &Channel{
		port:            port,
		deps:            deps,
		responseTimeout: defaultResponseTimeout,
		pending:         make(map[string]chan types.Message),
	}
}

func (c *Channel) ID() string {
	return "http"
}

func (c *Channel) Start(ctx context.Context, handler func(types.Message)) error {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", c.port),
		Handler: c.routes(handler),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[HTTP] Listening on %s", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Send resolves the pending reply slot for the request, if any caller is
// still waiting on it.
func (c *Channel) Send(ctx context.Context, msg types.Message) error {
	c.mu.Lock()
	waiter, ok := c.pending[msg.RequestID]
	if ok {
		delete(c.pending, msg.RequestID)
	}
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("no pending request: %s", msg.RequestID)
	}
	waiter <- msg
	return nil
}

func (c *Channel) routes(handler func(types.Message)) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", c.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/query", c.handleQuery(handler))
		r.Post("/execute", c.handleExecute)
		r.Get("/tasks/{taskID}", c.handleTaskStatus)
		r.Post("/sessions", c.handleCreateSession)
		r.Get("/sessions/{sessionID}", c.handleGetSession)
		r.Post("/ingest", c.handleIngest)
		r.Get("/search", c.handleSearch)
		r.Get("/history", c.handleHistory)
	})
	return r
}

type queryRequest struct {
	Message   string `json:"message"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Mode      string `json:"mode"`
}

func (c *Channel) handleQuery(handler func(types.Message)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req queryRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			writeError(w, http.StatusBadRequest, "message is required")
			return
		}
		if strings.TrimSpace(req.UserID) == "" {
			req.UserID = "anonymous"
		}

		requestID := uuid.NewString()
		waiter := make(chan types.Message, 1)
		c.mu.Lock()
		c.pending[requestID] = waiter
		c.mu.Unlock()

		go handler(types.Message{
			ID:        requestID,
			Content:   req.Message,
			Role:      types.MessageRoleUser,
			ChannelID: c.ID(),
			UserID:    req.UserID,
			SessionID: req.SessionID,
			RequestID: requestID,
			Mode:      req.Mode,
		})

		select {
		case reply := <-waiter:
			payload := map[string]interface{}{
				"response":   reply.Content,
				"session_id": reply.SessionID,
				"request_id": requestID,
			}
			if reply.TaskID != "" {
				payload["task_id"] = reply.TaskID
			}
			for _, key := range []string{"confidence", "knowledge_gained", "degraded", "error"} {
				if v, ok := reply.Meta[key]; ok {
					payload[key] = v
				}
			}
			writeJSON(w, http.StatusOK, payload)
		case <-time.After(c.responseTimeout):
			c.mu.Lock()
			delete(c.pending, requestID)
			c.mu.Unlock()
			writeError(w, http.StatusGatewayTimeout, "response timed out")
		case <-r.Context().Done():
			c.mu.Lock()
			delete(c.pending, requestID)
			c.mu.Unlock()
		}
	}
}

type executeRequest struct {
	Agent    string `json:"agent"`
	Payload  string `json:"payload"`
	Priority string `json:"priority"`
}

func (c *Channel) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Payload) == "" {
		writeError(w, http.StatusBadRequest, "payload is required")
		return
	}

	taskID, err := c.deps.Orchestrator.CreateTask(r.Context(), req.Agent, req.Payload, req.Priority)
	if err != nil {
		if errors.Is(err, orchestrator.ErrUnknownAgent) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"task_id": taskID,
		"status":  orchestrator.StatusPending,
	})
}

func (c *Channel) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	task, err := c.deps.Orchestrator.GetStatus(chi.URLParam(r, "taskID"))
	if err != nil {
		if errors.Is(err, orchestrator.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (c *Channel) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	sessionID := c.deps.Memory.CreateSession(req.UserID)
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": sessionID})
}

func (c *Channel) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := c.deps.Memory.Session(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session)
}

type ingestRequest struct {
	DocID    string            `json:"doc_id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

func (c *Channel) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	if strings.TrimSpace(req.DocID) == "" {
		req.DocID = uuid.NewString()
	}

	chunks := c.deps.Memory.StoreDocument(req.DocID, req.Content, req.Metadata)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"doc_id": req.DocID,
		"chunks": len(chunks),
	})
}

func (c *Channel) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	topK, _ := strconv.Atoi(r.URL.Query().Get("k"))
	results := c.deps.Memory.Search(query, topK)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"query":   query,
		"results": results,
	})
}

func (c *Channel) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	history, err := c.deps.Audit.History(r.URL.Query().Get("user_id"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"exchanges": history})
}

func (c *Channel) handleHealth(w http.ResponseWriter, r *http.Request) {
	sessions, documents := c.deps.Memory.Stats()
	taskCounts, queueStats, err := c.deps.Orchestrator.Stats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	payload := map[string]interface{}{
		"status":    "ok",
		"knowledge": c.deps.Knowledge.Stats(),
		"memory": map[string]int{
			"sessions":  sessions,
			"documents": documents,
		},
		"tasks": taskCounts,
		"queue": queueStats,
	}
	if c.deps.Health != nil {
		payload["gateway"] = c.deps.Health()
	}
	writeJSON(w, http.StatusOK, payload)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[HTTP] Response encoding failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
