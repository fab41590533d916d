package http

import (
	"net/http"

	"github.com/hourstack/hourstack/internal/domain/task"
)

// ListTasks handles GET /api/v1/tasks?client_id=&status=
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client_id")
	status := task.Status(r.URL.Query().Get("status"))

	if clientID != "" && !canAccessClient(r, clientID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	tasks, err := h.Tasks.List(r.Context(), clientID, status)
	if err != nil {
		writeDomainError(w, err, "tasks not found")
		return
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// GetTask handles GET /api/v1/tasks/{id}
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.Tasks.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	if !canAccessClient(r, t.ClientID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// CreateTask handles POST /api/v1/tasks
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[task.CreateRequest](w, r)
	if !ok {
		return
	}

	created, err := h.Tasks.Create(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "client not found")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateTask handles PATCH /api/v1/tasks/{id}
func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[task.UpdateRequest](w, r)
	if !ok {
		return
	}

	updated, err := h.Tasks.Update(r.Context(), urlParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteTask handles DELETE /api/v1/tasks/{id}
func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.Tasks.Delete(r.Context(), urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReorderTasks handles POST /api/v1/tasks/reorder
func (h *Handlers) ReorderTasks(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[task.ReorderRequest](w, r)
	if !ok {
		return
	}

	if err := h.Tasks.Reorder(r.Context(), req); err != nil {
		writeDomainError(w, err, "tasks not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
