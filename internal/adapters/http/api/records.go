package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	service "github.com/okian/kam/internal/app"
	"github.com/okian/kam/internal/domain/access"
	"github.com/okian/kam/internal/domain/analytics"
	"github.com/okian/kam/internal/domain/scoring"
	"github.com/okian/kam/pkg/logger"
)

// RecordService reads performance records.
type RecordService interface {
	Records(p access.Principal, q analytics.TableQuery) (analytics.TablePage, error)
	Profile(p access.Principal, userID string) (analytics.UserProfile, error)
	POCs(p access.Principal) []service.POCEntry
}

// RecordsHandler serves the records table and user profiles.
type RecordsHandler struct {
	deps   RecordService
	logger logger.Logger
}

// NewRecordsHandler creates a new records handler.
func NewRecordsHandler(deps RecordService, l logger.Logger) *RecordsHandler {
	return &RecordsHandler{deps: deps, logger: l}
}

// Table page size bounds.
const (
	defaultPageSize = 50
	maxPageSize     = 1000
)

// HandleList handles GET /api/records.
func (h *RecordsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.records"
	q, err := parseTableQuery(op, r.URL.Query())
	if err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	page, err := h.deps.Records(principal(r), q)
	if err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	page.Rows = items(page.Rows)
	writeJSON(w, http.StatusOK, page)
}

// HandleProfile handles GET /api/records/{userID}.
func (h *RecordsHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	prof, err := h.deps.Profile(principal(r), r.PathValue("userID"))
	if err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	prof.Queries = items(prof.Queries)
	writeJSON(w, http.StatusOK, prof)
}

// HandlePOCs handles GET /api/pocs.
func (h *RecordsHandler) HandlePOCs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, items(h.deps.POCs(principal(r))))
}

func parseTableQuery(op string, v url.Values) (analytics.TableQuery, error) {
	q := analytics.TableQuery{
		Search: v.Get("q"),
		POC:    v.Get("poc"),
		Sort:   v.Get("sort"),
		Dir:    v.Get("dir"),
		Limit:  defaultPageSize,
	}
	if raw := v.Get("performance"); raw != "" {
		band, ok := scoring.ParseBand(raw)
		if !ok {
			return q, WrapKind(op, ErrBadRequest, errInvalidParam("performance", raw))
		}
		q.Performance = band
	}
	var err error
	if q.Limit, err = intParam(v, "limit", defaultPageSize); err != nil || q.Limit < 1 || q.Limit > maxPageSize {
		return q, WrapKind(op, ErrBadRequest, errInvalidParam("limit", v.Get("limit")))
	}
	if q.Offset, err = intParam(v, "offset", 0); err != nil || q.Offset < 0 {
		return q, WrapKind(op, ErrBadRequest, errInvalidParam("offset", v.Get("offset")))
	}
	return q, nil
}

func intParam(v url.Values, key string, def int) (int, error) {
	raw := v.Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func errInvalidParam(name, value string) error {
	return fmt.Errorf("invalid %s %q", name, value)
}
