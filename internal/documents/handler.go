package documents

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/cloudwise/docuproc/internal/results"
	"github.com/cloudwise/docuproc/internal/tasks"
	"github.com/cloudwise/docuproc/pkg/handlers"
	"github.com/cloudwise/docuproc/pkg/pagination"
	"github.com/cloudwise/docuproc/pkg/routes"
)

// Handler provides HTTP endpoints for document operations.
type Handler struct {
	sys           System
	tasks         tasks.System
	results       results.System
	logger        *slog.Logger
	pagination    pagination.Config
	maxUploadSize int64
}

// SearchRequest combines pagination and filter criteria for the search endpoint.
type SearchRequest struct {
	pagination.PageRequest
	Filters
}

// UploadResponse pairs the created document with its queued processing task.
type UploadResponse struct {
	Document *Document   `json:"document"`
	Task     *tasks.Task `json:"task"`
}

// StatusResponse is the combined processing view for one document. Task is
// the most recent task; Result is nil until processing completes.
type StatusResponse struct {
	Document *Document                 `json:"document"`
	Task     *tasks.Task               `json:"task,omitempty"`
	Result   *results.ProcessingResult `json:"result,omitempty"`
}

// NewHandler creates a Handler with the given systems, logger, pagination
// config, and upload size limit.
func NewHandler(
	sys System,
	queue tasks.System,
	res results.System,
	logger *slog.Logger,
	pagination pagination.Config,
	maxUploadSize int64,
) *Handler {
	return &Handler{
		sys:           sys,
		tasks:         queue,
		results:       res,
		logger:        logger.With("handler", "documents"),
		pagination:    pagination,
		maxUploadSize: maxUploadSize,
	}
}

// Routes returns the route group definition for document endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/documents",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "GET", Pattern: "/{id}/status", Handler: h.Status},
			{Method: "POST", Pattern: "", Handler: h.Upload},
			{Method: "POST", Pattern: "/search", Handler: h.Search},
			{Method: "POST", Pattern: "/{id}/process", Handler: h.Process},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Delete},
		},
	}
}

// List returns a paginated list of documents with optional query parameter filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns a single document by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidFile)
		return
	}

	doc, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, doc)
}

// Status returns the document together with its most recent task and its
// processing result, when either exists.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidFile)
		return
	}

	doc, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	resp := StatusResponse{Document: doc}

	task, err := h.tasks.FindByDocument(r.Context(), id)
	if err != nil && !errors.Is(err, tasks.ErrNotFound) {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}
	resp.Task = task

	result, err := h.results.FindByDocument(r.Context(), id)
	if err != nil && !errors.Is(err, results.ErrNotFound) {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}
	resp.Result = result

	handlers.RespondJSON(w, http.StatusOK, resp)
}

// Search accepts a JSON body with pagination and filter criteria and returns matching documents.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidFile)
		return
	}

	req.PageRequest.Normalize(h.pagination)

	result, err := h.sys.List(r.Context(), req.PageRequest, req.Filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Upload processes a multipart form upload containing a file, persists the
// document, and queues its processing task. Extracts PDF page count
// automatically for PDF files using pdfcpu.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, ErrFileTooLarge)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidFile)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidFile)
		return
	}

	contentType := detectContentType(header.Header.Get("Content-Type"), data)

	cmd := CreateCommand{
		Data:        data,
		Filename:    header.Filename,
		ContentType: contentType,
		PageCount:   extractPDFPageCount(h.logger, data, contentType),
	}

	doc, err := h.sys.Create(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	task, _, err := h.tasks.Enqueue(r.Context(), doc.ID)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, UploadResponse{Document: doc, Task: task})
}

// Process re-enqueues a terminal document. A document with a live task
// cannot be re-enqueued. The stale result is cleared and the document
// returned to pending before the new task row exists: once the task
// commits a worker may claim and finish the run immediately, and cleanup
// after that point would destroy the fresh result.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidFile)
		return
	}

	doc, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	prior, err := h.tasks.FindByDocument(r.Context(), doc.ID)
	if err != nil && !errors.Is(err, tasks.ErrNotFound) {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}
	if prior != nil && prior.Status.Live() {
		handlers.RespondError(w, h.logger, MapHTTPStatus(ErrNotTerminal), ErrNotTerminal)
		return
	}

	if err := h.results.DeleteByDocument(r.Context(), doc.ID); err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	if err := h.sys.MarkPending(r.Context(), doc.ID); err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	task, created, err := h.tasks.Enqueue(r.Context(), doc.ID)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}
	if !created {
		// Lost a race with a concurrent enqueue; the winning task owns the run.
		handlers.RespondError(w, h.logger, MapHTTPStatus(ErrNotTerminal), ErrNotTerminal)
		return
	}

	handlers.RespondJSON(w, http.StatusAccepted, task)
}

// Delete removes a document by its UUID path parameter. A document with a
// live processing task cannot be deleted.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidFile)
		return
	}

	task, err := h.tasks.FindByDocument(r.Context(), id)
	if err != nil && !errors.Is(err, tasks.ErrNotFound) {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}
	if task != nil && task.Status.Live() {
		handlers.RespondError(w, h.logger, MapHTTPStatus(ErrNotTerminal), ErrNotTerminal)
		return
	}

	if err := h.sys.Delete(r.Context(), id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func detectContentType(header string, data []byte) string {
	header = strings.TrimSpace(header)
	if header != "" && header != "application/octet-stream" {
		return header
	}
	return http.DetectContentType(data)
}

func extractPDFPageCount(logger *slog.Logger, data []byte, contentType string) *int {
	if contentType != "application/pdf" {
		return nil
	}

	count, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		logger.Warn("failed to extract PDF page count", "error", err)
		return nil
	}

	return &count
}
