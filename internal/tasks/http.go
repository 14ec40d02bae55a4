package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
)

const (
	maxTitleLen = 200
	maxGoalLen  = 500
)

type createTaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Priority    string  `json:"priority"`
	Category    string  `json:"category"`
	DueDate     *string `json:"due_date"`
}

type toggleTaskRequest struct {
	IsCompleted *bool `json:"is_completed"`
}

type planRequest struct {
	Goal string `json:"goal"`
}

type statsResponse struct {
	Stats
	Phase Phase `json:"phase"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errResponse struct {
	Error   string       `json:"error"`
	Details []fieldError `json:"details,omitempty"`
}

// RegisterRoutes mounts the task API. aiMiddleware wraps only the routes
// that call the generative model.
func RegisterRoutes(r chi.Router, c *Controller, aiMiddleware ...func(http.Handler) http.Handler) {
	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", listTasks(c))
		r.Post("/", createTask(c))
		r.Get("/stats", taskStats(c))
		r.Delete("/completed", clearCompleted(c))
		r.With(aiMiddleware...).Post("/plan", planGoal(c))

		r.Route("/{id}", func(r chi.Router) {
			r.Patch("/", toggleTask(c))
			r.Delete("/", deleteTask(c))
			r.With(aiMiddleware...).Get("/subtasks", breakdown(c))
		})
	})
}

func listTasks(c *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		f, err := ParseFilter(r.URL.Query().Get("filter"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errResponse{
				Error:   "invalid_filter",
				Details: []fieldError{{Field: "filter", Message: "filter must be all, active or completed"}},
			})
			return
		}
		writeJSON(w, http.StatusOK, c.Tasks(f))
	}
}

func taskStats(c *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		writeJSON(w, http.StatusOK, statsResponse{Stats: c.Stats(), Phase: c.Phase()})
	}
}

func createTask(c *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		var req createTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_json"})
			return
		}

		draft, vErrs := validateCreateTask(req)
		if len(vErrs) > 0 {
			writeJSON(w, http.StatusUnprocessableEntity, errResponse{
				Error:   "validation_error",
				Details: vErrs,
			})
			return
		}

		t, err := c.Add(r.Context(), draft)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, t)
	}
}

func toggleTask(c *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		var req toggleTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_json"})
			return
		}
		if req.IsCompleted == nil {
			writeJSON(w, http.StatusUnprocessableEntity, errResponse{
				Error:   "validation_error",
				Details: []fieldError{{Field: "is_completed", Message: "is_completed is required"}},
			})
			return
		}

		t, err := c.Toggle(r.Context(), chi.URLParam(r, "id"), *req.IsCompleted)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func deleteTask(c *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := c.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			w.Header().Set("Content-Type", "application/json")
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func clearCompleted(c *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		n, err := c.ClearCompleted(r.Context())
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
	}
}

func planGoal(c *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		var req planRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_json"})
			return
		}
		goal := strings.TrimSpace(req.Goal)
		if goal == "" || utf8.RuneCountInString(goal) > maxGoalLen {
			writeJSON(w, http.StatusUnprocessableEntity, errResponse{
				Error: "validation_error",
				Details: []fieldError{
					{Field: "goal", Message: fmt.Sprintf("goal is required and at most %d characters", maxGoalLen)},
				},
			})
			return
		}

		created, err := c.PlanGoal(r.Context(), goal)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func breakdown(c *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		subtasks, err := c.Breakdown(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string][]string{"subtasks": subtasks})
	}
}

func validateCreateTask(req createTaskRequest) (Draft, []fieldError) {
	var errs []fieldError

	if strings.TrimSpace(req.Title) == "" {
		errs = append(errs, fieldError{
			Field:   "title",
			Message: "title is required",
		})
	}

	if l := utf8.RuneCountInString(req.Title); l > maxTitleLen {
		errs = append(errs, fieldError{
			Field:   "title",
			Message: fmt.Sprintf("title must be at most %d characters", maxTitleLen),
		})
	}

	d := Draft{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Category:    req.Category,
	}
	if req.DueDate != nil && strings.TrimSpace(*req.DueDate) != "" {
		due, err := ParseDate(*req.DueDate)
		if err != nil {
			errs = append(errs, fieldError{
				Field:   "due_date",
				Message: "due_date must be YYYY-MM-DD",
			})
		} else {
			d.DueDate = &due
		}
	}

	return d, errs
}

func writeStoreError(w http.ResponseWriter, err error) {
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
		var se *StoreError
		if errors.As(err, &se) {
			writeJSON(w, http.StatusBadGateway, errResponse{Error: "store_unavailable"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errResponse{Error: "unexpected_error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
