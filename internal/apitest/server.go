// Package apitest runs an in-memory todo backend for tests.
package apitest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"taskdeck/internal/task"
)

const wireLayout = "2006-01-02T15:04:05"

// Record is a stored todo in its wire shape.
type Record struct {
	ID          int64   `json:"id"`
	Task        string  `json:"task"`
	Category    string  `json:"category"`
	Priority    int     `json:"priority"`
	Description string  `json:"description"`
	DueDate     *string `json:"dueDate"`
	Completed   bool    `json:"completed"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

// Request is a call the server received. Body holds the decoded JSON object
// for POST and PUT, so tests can tell an absent key from a null one. Path
// is the escaped form.
type Request struct {
	Method string
	Path   string
	Body   map[string]any
}

// Server is a fake backend. Fail makes an operation return an error status
// until cleared with Fail(op, 0).
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	records    []Record
	nextID     int64
	categories []string
	failures   map[string]int
	requests   []Request
	now        func() time.Time
}

// Operations accepted by Fail.
const (
	OpList       = "list"
	OpGet        = "get"
	OpStats      = "stats"
	OpCategories = "categories"
	OpCreate     = "create"
	OpUpdate     = "update"
	OpDelete     = "delete"
)

func NewServer() *Server {
	s := &Server{
		nextID:   1,
		failures: make(map[string]int),
		now:      time.Now,
	}
	r := chi.NewRouter()
	r.Use(s.record)
	r.Route("/api/todos", func(r chi.Router) {
		r.Get("/", s.list)
		r.Post("/", s.create)
		r.Get("/stats", s.stats)
		r.Get("/categories", s.listCategories)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.get)
			r.Put("/", s.update)
			r.Delete("/", s.delete)
		})
	})
	s.Server = httptest.NewServer(r)
	return s
}

// SetNow fixes the clock used for createdAt and stats.
func (s *Server) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Server) Fail(op string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, op)
		return
	}
	s.failures[op] = status
}

// Seed stores a record as if created through the API and returns its id.
func (s *Server) Seed(rec Record) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = s.nextID
	s.nextID++
	if rec.CreatedAt == "" {
		rec.CreatedAt = s.now().Format(wireLayout)
	}
	s.records = append(s.records, rec)
	s.addCategory(rec.Category)
	return rec.ID
}

// Records returns a copy of the stored records.
func (s *Server) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Requests returns the calls received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Last returns the most recent call with the given method, if any.
func (s *Server) Last(method string) (Request, bool) {
	reqs := s.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Method == method {
			return reqs[i], true
		}
	}
	return Request{}, false
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := Request{Method: r.Method, Path: r.URL.EscapedPath()}
		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, "malformed body")
				return
			}
			req.Body = body
		}
		s.mu.Lock()
		s.requests = append(s.requests, req)
		s.mu.Unlock()
		next.ServeHTTP(w, r.WithContext(withBody(r.Context(), req.Body)))
	})
}

type bodyKey struct{}

func withBody(ctx context.Context, body map[string]any) context.Context {
	return context.WithValue(ctx, bodyKey{}, body)
}

func bodyFrom(ctx context.Context) map[string]any {
	body, _ := ctx.Value(bodyKey{}).(map[string]any)
	return body
}

func (s *Server) failed(w http.ResponseWriter, op string) bool {
	s.mu.Lock()
	status, ok := s.failures[op]
	s.mu.Unlock()
	if !ok {
		return false
	}
	writeError(w, status, op+" failed")
	return true
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	if s.failed(w, OpList) {
		return
	}
	writeJSON(w, http.StatusOK, s.Records())
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	if s.failed(w, OpGet) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(chi.URLParam(r, "id"))
	if i < 0 {
		writeError(w, http.StatusNotFound, "todo not found")
		return
	}
	writeJSON(w, http.StatusOK, s.records[i])
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	if s.failed(w, OpCreate) {
		return
	}
	body := bodyFrom(r.Context())
	text, _ := body["task"].(string)
	if text == "" {
		writeError(w, http.StatusBadRequest, "task is required")
		return
	}
	rec := Record{Task: text, Priority: int(task.PriorityMedium)}
	if v, ok := body["category"].(string); ok && v != "" {
		rec.Category = v
	} else {
		rec.Category = "Default"
	}
	if v, ok := body["priority"].(float64); ok {
		rec.Priority = int(v)
	}
	if v, ok := body["description"].(string); ok {
		rec.Description = v
	}
	if v, ok := body["dueDate"].(string); ok {
		rec.DueDate = &v
	}

	s.mu.Lock()
	rec.ID = s.nextID
	s.nextID++
	rec.CreatedAt = s.now().Format(wireLayout)
	rec.UpdatedAt = rec.CreatedAt
	s.records = append(s.records, rec)
	s.addCategory(rec.Category)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	if s.failed(w, OpUpdate) {
		return
	}
	body := bodyFrom(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(chi.URLParam(r, "id"))
	if i < 0 {
		writeError(w, http.StatusNotFound, "todo not found")
		return
	}
	rec := s.records[i]
	if v, ok := body["task"].(string); ok {
		rec.Task = v
	}
	if v, ok := body["category"].(string); ok {
		rec.Category = v
	}
	if v, ok := body["priority"].(float64); ok {
		rec.Priority = int(v)
	}
	if v, ok := body["description"].(string); ok {
		rec.Description = v
	}
	if v, ok := body["completed"].(bool); ok {
		rec.Completed = v
	}
	if v, ok := body["dueDate"]; ok {
		if due, isString := v.(string); isString {
			rec.DueDate = &due
		} else {
			rec.DueDate = nil
		}
	}
	rec.UpdatedAt = s.now().Format(wireLayout)
	s.records[i] = rec
	s.addCategory(rec.Category)
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	if s.failed(w, OpDelete) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(chi.URLParam(r, "id"))
	if i < 0 {
		writeError(w, http.StatusNotFound, "todo not found")
		return
	}
	s.records = append(s.records[:i], s.records[i+1:]...)
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	if s.failed(w, OpStats) {
		return
	}
	s.mu.Lock()
	now := s.now()
	tasks := make([]task.Task, 0, len(s.records))
	for _, rec := range s.records {
		t := task.Task{Completed: rec.Completed}
		if rec.DueDate != nil {
			if due, err := time.ParseInLocation(wireLayout, *rec.DueDate, now.Location()); err == nil {
				t.Due = &due
			}
		}
		tasks = append(tasks, t)
	}
	s.mu.Unlock()

	st := task.Count(tasks, now)
	writeJSON(w, http.StatusOK, map[string]any{
		"total":          st.Total,
		"completed":      st.Completed,
		"pending":        st.Pending,
		"overdue":        st.Overdue,
		"todayDue":       st.TodayDue,
		"completionRate": st.CompletionRate,
	})
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	if s.failed(w, OpCategories) {
		return
	}
	s.mu.Lock()
	out := make([]string, len(s.categories))
	copy(out, s.categories)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

// find expects s.mu to be held.
func (s *Server) find(raw string) int {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return -1
	}
	for i, rec := range s.records {
		if rec.ID == id {
			return i
		}
	}
	return -1
}

// addCategory expects s.mu to be held.
func (s *Server) addCategory(name string) {
	if name == "" {
		return
	}
	for _, c := range s.categories {
		if c == name {
			return
		}
	}
	s.categories = append(s.categories, name)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{
		"error":   "request failed",
		"message": message,
	})
}
