package api

import (
	"context"
	"net/http"
	"time"

	"github.com/okian/kam/internal/domain/access"
	"github.com/okian/kam/internal/domain/model"
	"github.com/okian/kam/pkg/logger"
)

// ActivityService records calls, queries and tags.
type ActivityService interface {
	Calls(p access.Principal) []model.CallRecord
	SaveCall(ctx context.Context, p access.Principal, call model.CallRecord) (model.CallRecord, error)
	Queries(p access.Principal) []model.UserQuery
	SaveQuery(ctx context.Context, p access.Principal, q model.UserQuery) (model.UserQuery, error)
	SetQueryStatus(ctx context.Context, p access.Principal, id string, status model.QueryStatus) (model.UserQuery, error)
	RetailerTags(p access.Principal) []model.RetailerTag
	SaveRetailerTag(ctx context.Context, p access.Principal, tag model.RetailerTag) (model.RetailerTag, error)
	Retailers() []string
	ComplaintTags() []string
	AddComplaintTag(ctx context.Context, p access.Principal, name string) error
	RenameComplaintTag(ctx context.Context, p access.Principal, from, to string) error
	DeleteComplaintTag(ctx context.Context, p access.Principal, name string) error
}

// ActivityHandler serves calls, queries, retailer tags and complaint tags.
type ActivityHandler struct {
	deps   ActivityService
	logger logger.Logger
}

// NewActivityHandler creates a new activity handler.
func NewActivityHandler(deps ActivityService, l logger.Logger) *ActivityHandler {
	return &ActivityHandler{deps: deps, logger: l}
}

type callRequest struct {
	UserID       string           `json:"userId" validate:"required,max=128"`
	Status       model.CallStatus `json:"status" validate:"required"`
	Comment      string           `json:"comment" validate:"max=2000"`
	ComplaintTag string           `json:"complaintTag" validate:"max=200"`
	Timestamp    *time.Time       `json:"timestamp"`
}

type queryRequest struct {
	ID           string            `json:"id" validate:"max=64"`
	UserID       string            `json:"userId" validate:"required,max=128"`
	UserName     string            `json:"userName" validate:"max=200"`
	ComplaintTag string            `json:"complaintTag" validate:"max=200"`
	Comment      string            `json:"comment" validate:"max=2000"`
	Status       model.QueryStatus `json:"status"`
}

type statusRequest struct {
	Status model.QueryStatus `json:"status" validate:"required"`
}

type retailerTagRequest struct {
	UserID    string   `json:"userId" validate:"required,max=128"`
	UserName  string   `json:"userName" validate:"max=200"`
	Retailers []string `json:"retailers" validate:"required,min=1,max=3,dive,required"`
}

type tagRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// HandleListCalls handles GET /api/calls.
func (h *ActivityHandler) HandleListCalls(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, items(h.deps.Calls(principal(r))))
}

// HandleSaveCall handles PUT /api/calls.
func (h *ActivityHandler) HandleSaveCall(w http.ResponseWriter, r *http.Request) {
	const op = "api.save_call"
	var req callRequest
	if err := decodeJSON(r, op, &req); err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	call := model.CallRecord{
		UserID:       req.UserID,
		Status:       req.Status,
		Comment:      req.Comment,
		ComplaintTag: req.ComplaintTag,
	}
	if req.Timestamp != nil {
		call.Timestamp = req.Timestamp.UTC()
	}
	saved, err := h.deps.SaveCall(r.Context(), principal(r), call)
	if err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// HandleListQueries handles GET /api/queries.
func (h *ActivityHandler) HandleListQueries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, items(h.deps.Queries(principal(r))))
}

// HandleSaveQuery handles POST /api/queries. A body with an id updates that
// query; otherwise a new one is created.
func (h *ActivityHandler) HandleSaveQuery(w http.ResponseWriter, r *http.Request) {
	const op = "api.save_query"
	var req queryRequest
	if err := decodeJSON(r, op, &req); err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	saved, err := h.deps.SaveQuery(r.Context(), principal(r), model.UserQuery{
		ID:           req.ID,
		UserID:       req.UserID,
		UserName:     req.UserName,
		ComplaintTag: req.ComplaintTag,
		Comment:      req.Comment,
		Status:       req.Status,
	})
	if err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	status := http.StatusOK
	if req.ID == "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, saved)
}

// HandleQueryStatus handles PATCH /api/queries/{id}.
func (h *ActivityHandler) HandleQueryStatus(w http.ResponseWriter, r *http.Request) {
	const op = "api.query_status"
	var req statusRequest
	if err := decodeJSON(r, op, &req); err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	q, err := h.deps.SetQueryStatus(r.Context(), principal(r), r.PathValue("id"), req.Status)
	if err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// HandleListRetailerTags handles GET /api/retailer-tags.
func (h *ActivityHandler) HandleListRetailerTags(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, items(h.deps.RetailerTags(principal(r))))
}

// HandleSaveRetailerTag handles PUT /api/retailer-tags.
func (h *ActivityHandler) HandleSaveRetailerTag(w http.ResponseWriter, r *http.Request) {
	const op = "api.save_retailer_tag"
	var req retailerTagRequest
	if err := decodeJSON(r, op, &req); err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	tag, err := h.deps.SaveRetailerTag(r.Context(), principal(r), model.RetailerTag{
		UserID:    req.UserID,
		UserName:  req.UserName,
		Retailers: req.Retailers,
	})
	if err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

// HandleRetailers handles GET /api/retailers.
func (h *ActivityHandler) HandleRetailers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Retailers())
}

// HandleListComplaintTags handles GET /api/complaint-tags.
func (h *ActivityHandler) HandleListComplaintTags(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, items(h.deps.ComplaintTags()))
}

// HandleAddComplaintTag handles POST /api/complaint-tags.
func (h *ActivityHandler) HandleAddComplaintTag(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_complaint_tag"
	var req tagRequest
	if err := decodeJSON(r, op, &req); err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	if err := h.deps.AddComplaintTag(r.Context(), principal(r), req.Name); err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, items(h.deps.ComplaintTags()))
}

// HandleRenameComplaintTag handles PUT /api/complaint-tags/{name}.
func (h *ActivityHandler) HandleRenameComplaintTag(w http.ResponseWriter, r *http.Request) {
	const op = "api.rename_complaint_tag"
	var req tagRequest
	if err := decodeJSON(r, op, &req); err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	if err := h.deps.RenameComplaintTag(r.Context(), principal(r), r.PathValue("name"), req.Name); err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, items(h.deps.ComplaintTags()))
}

// HandleDeleteComplaintTag handles DELETE /api/complaint-tags/{name}.
func (h *ActivityHandler) HandleDeleteComplaintTag(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeleteComplaintTag(r.Context(), principal(r), r.PathValue("name")); err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
