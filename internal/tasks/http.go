package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// Domain metrics, alongside the HTTP-level ones in internal/middleware.
var (
	tasksCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "taskmaster_tasks_created_total",
		Help: "Total number of tasks created",
	})
	tasksCompletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "taskmaster_tasks_completed_total",
		Help: "Total number of tasks marked completed",
	})
	tasksDeletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "taskmaster_tasks_deleted_total",
		Help: "Total number of tasks deleted",
	})
)

func init() {
	prometheus.MustRegister(tasksCreatedTotal, tasksCompletedTotal, tasksDeletedTotal)
}

// Defaults supplies creation-time fallbacks for fields the client omits.
// The settings store implements this in main.
type Defaults interface {
	DefaultTaskPriority() Priority
}

// StaticDefaults is the no-settings fallback.
type StaticDefaults struct{ Priority Priority }

func (d StaticDefaults) DefaultTaskPriority() Priority {
	if d.Priority == "" {
		return DefaultPriority
	}
	return d.Priority
}

type taskRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	Status      string   `json:"status"`
	DueDate     *string  `json:"due_date"`
	Tags        []string `json:"tags"`
}

type updateTaskRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Priority    *string  `json:"priority"`
	Status      *string  `json:"status"`
	DueDate     *string  `json:"due_date"` // empty string clears the due date
	Tags        []string `json:"tags"`     // empty array clears tags, absent leaves them
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errResponse struct {
	Error   string       `json:"error"`
	Details []fieldError `json:"details,omitempty"`
}

func RegisterRoutes(r chi.Router, repo Repository, defaults Defaults) {
	r.Post("/tasks", createTask(repo, defaults))
	r.Get("/tasks", listTasks(repo))
	r.Get("/tasks/{id}", getTask(repo))
	r.Put("/tasks/{id}", updateTask(repo))
	r.Delete("/tasks/{id}", deleteTask(repo))
	r.Post("/tasks/{id}/complete", setStatus(repo, StatusCompleted, tasksCompletedTotal))
	r.Post("/tasks/{id}/reopen", setStatus(repo, StatusTodo, nil))
	r.Get("/stats", statsHandler(repo))
}

func createTask(repo Repository, defaults Defaults) http.HandlerFunc {
	const maxTitleLen = 200

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		var req taskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_json"})
			return
		}

		p, vErrs := buildCreateParams(req, maxTitleLen, defaults)
		if len(vErrs) > 0 {
			writeJSON(w, http.StatusUnprocessableEntity, errResponse{
				Error:   "validation_error",
				Details: vErrs,
			})
			return
		}

		t, err := repo.Create(r.Context(), p)
		if err != nil {
			if errors.Is(err, ErrTitleRequired) {
				writeJSON(w, http.StatusUnprocessableEntity, errResponse{
					Error: "validation_error",
					Details: []fieldError{
						{Field: "title", Message: "title is required"},
					},
				})
				return
			}
			writeJSON(w, http.StatusInternalServerError, errResponse{Error: "unexpected_error"})
			return
		}

		tasksCreatedTotal.Inc()
		writeJSON(w, http.StatusCreated, t)
	}
}

func buildCreateParams(req taskRequest, maxTitleLen int, defaults Defaults) (CreateParams, []fieldError) {
	var errs []fieldError

	if strings.TrimSpace(req.Title) == "" {
		errs = append(errs, fieldError{Field: "title", Message: "title is required"})
	}
	if l := len(req.Title); l > maxTitleLen {
		errs = append(errs, fieldError{
			Field:   "title",
			Message: fmt.Sprintf("title must be at most %d characters", maxTitleLen),
		})
	}

	p := CreateParams{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
	}

	var err error
	if p.Priority, err = ParsePriority(req.Priority); err != nil {
		errs = append(errs, fieldError{Field: "priority", Message: err.Error()})
	}
	if req.Priority == "" && defaults != nil {
		p.Priority = defaults.DefaultTaskPriority()
	}
	if p.Status, err = ParseStatus(req.Status); err != nil {
		errs = append(errs, fieldError{Field: "status", Message: err.Error()})
	}
	if req.DueDate != nil && *req.DueDate != "" {
		due, err := time.Parse(time.RFC3339, *req.DueDate)
		if err != nil {
			errs = append(errs, fieldError{Field: "due_date", Message: "must be an RFC3339 timestamp"})
		} else {
			p.DueDate = &due
		}
	}

	return p, errs
}

func listTasks(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		f, vErrs := filterFromQuery(r)
		if len(vErrs) > 0 {
			writeJSON(w, http.StatusBadRequest, errResponse{
				Error:   "invalid_query",
				Details: vErrs,
			})
			return
		}

		list, err := repo.List(r.Context(), f)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errResponse{Error: "unexpected_error"})
			return
		}
		if list == nil {
			list = []Task{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func filterFromQuery(r *http.Request) (Filter, []fieldError) {
	var (
		f    Filter
		errs []fieldError
		err  error
	)
	q := r.URL.Query()

	if f.View, err = ParseView(q.Get("view")); err != nil {
		errs = append(errs, fieldError{Field: "view", Message: err.Error()})
	}
	if raw := q.Get("status"); raw != "" {
		st, err := ParseStatus(raw)
		if err != nil {
			errs = append(errs, fieldError{Field: "status", Message: err.Error()})
		} else {
			f.Status = &st
		}
	}
	if raw := q.Get("priority"); raw != "" {
		pr, err := ParsePriority(raw)
		if err != nil {
			errs = append(errs, fieldError{Field: "priority", Message: err.Error()})
		} else {
			f.Priority = &pr
		}
	}
	f.Tag = q.Get("tag")
	f.Search = q.Get("q")
	if raw := q.Get("due_after"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			errs = append(errs, fieldError{Field: "due_after", Message: "must be an RFC3339 timestamp"})
		} else {
			f.DueAfter = &ts
		}
	}
	if raw := q.Get("due_before"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			errs = append(errs, fieldError{Field: "due_before", Message: "must be an RFC3339 timestamp"})
		} else {
			f.DueBefore = &ts
		}
	}
	if f.Sort, err = ParseSortOrder(q.Get("sort")); err != nil {
		errs = append(errs, fieldError{Field: "sort", Message: err.Error()})
	}

	return f, errs
}

func getTask(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		id, ok := taskID(w, r)
		if !ok {
			return
		}
		t, err := repo.Get(r.Context(), id)
		if err != nil {
			writeRepoError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func updateTask(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		id, ok := taskID(w, r)
		if !ok {
			return
		}

		var req updateTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_json"})
			return
		}

		p, vErrs := buildUpdateParams(req)
		if len(vErrs) > 0 {
			writeJSON(w, http.StatusUnprocessableEntity, errResponse{
				Error:   "validation_error",
				Details: vErrs,
			})
			return
		}

		t, err := repo.Update(r.Context(), id, p)
		if err != nil {
			writeRepoError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func buildUpdateParams(req updateTaskRequest) (UpdateParams, []fieldError) {
	var errs []fieldError

	p := UpdateParams{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
	}

	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		errs = append(errs, fieldError{Field: "title", Message: "title is required"})
	}
	if req.Priority != nil {
		pr, err := ParsePriority(*req.Priority)
		if err != nil {
			errs = append(errs, fieldError{Field: "priority", Message: err.Error()})
		} else {
			p.Priority = &pr
		}
	}
	if req.Status != nil {
		st, err := ParseStatus(*req.Status)
		if err != nil {
			errs = append(errs, fieldError{Field: "status", Message: err.Error()})
		} else {
			p.Status = &st
		}
	}
	if req.DueDate != nil {
		if *req.DueDate == "" {
			p.RemoveDueDate = true
		} else {
			due, err := time.Parse(time.RFC3339, *req.DueDate)
			if err != nil {
				errs = append(errs, fieldError{Field: "due_date", Message: "must be an RFC3339 timestamp"})
			} else {
				p.DueDate = &due
			}
		}
	}

	return p, errs
}

func deleteTask(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := taskID(w, r)
		if !ok {
			return
		}
		if err := repo.Delete(r.Context(), id); err != nil {
			w.Header().Set("Content-Type", "application/json")
			writeRepoError(w, err)
			return
		}
		tasksDeletedTotal.Inc()
		w.WriteHeader(http.StatusNoContent)
	}
}

func setStatus(repo Repository, status Status, counter prometheus.Counter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		id, ok := taskID(w, r)
		if !ok {
			return
		}
		t, err := repo.Update(r.Context(), id, UpdateParams{Status: &status})
		if err != nil {
			writeRepoError(w, err)
			return
		}
		if counter != nil {
			counter.Inc()
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func statsHandler(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		list, err := repo.List(r.Context(), Filter{})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errResponse{Error: "unexpected_error"})
			return
		}
		writeJSON(w, http.StatusOK, Summarize(list, time.Now()))
	}
}

func taskID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_id"})
		return 0, false
	}
	return id, true
}

func writeRepoError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, errResponse{Error: "not_found"})
	case errors.Is(err, ErrTitleRequired):
		writeJSON(w, http.StatusUnprocessableEntity, errResponse{
			Error: "validation_error",
			Details: []fieldError{
				{Field: "title", Message: "title is required"},
			},
		})
	default:
		writeJSON(w, http.StatusInternalServerError, errResponse{Error: "unexpected_error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
