package api

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/okian/kam/internal/adapters/sheet"
	service "github.com/okian/kam/internal/app"
	"github.com/okian/kam/internal/domain/access"
	"github.com/okian/kam/internal/domain/ingest"
	"github.com/okian/kam/pkg/logger"
)

// ImportService runs the spreadsheet import workflow.
type ImportService interface {
	PreviewImport(ctx context.Context, p access.Principal, rows [][]string) (service.ImportPreview, error)
	ConfirmImport(ctx context.Context, p access.Principal, id string) (service.ImportResult, error)
	DirectImport(ctx context.Context, p access.Principal, rows [][]string) (service.ImportResult, error)
}

// ImportHandler handles spreadsheet uploads.
type ImportHandler struct {
	deps      ImportService
	maxUpload int64
	logger    logger.Logger
}

// NewImportHandler creates a new import handler.
func NewImportHandler(deps ImportService, maxUpload int64, l logger.Logger) *ImportHandler {
	return &ImportHandler{deps: deps, maxUpload: maxUpload, logger: l}
}

type importRequest struct {
	Rows [][]any `json:"rows" validate:"required,min=1"`
}

// HandlePreview handles POST /api/imports. The body is either a multipart
// form with a "file" part (.xlsx or .csv) or JSON {"rows": [[...]]}. With
// ?confirm=true the upload replaces the records immediately.
func (h *ImportHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	const op = "api.import"
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	rows, err := h.readRows(r, op)
	if err != nil {
		fail(ctx, h.logger, w, err)
		return
	}

	confirm, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	if confirm {
		res, err := h.deps.DirectImport(ctx, principal(r), rows)
		if err != nil {
			fail(ctx, h.logger, w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
		return
	}

	pv, err := h.deps.PreviewImport(ctx, principal(r), rows)
	if err != nil {
		fail(ctx, h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pv)
}

// HandleConfirm handles POST /api/imports/{id}/confirm.
func (h *ImportHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.ConfirmImport(r.Context(), principal(r), r.PathValue("id"))
	if err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ImportHandler) readRows(r *http.Request, op string) ([][]string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var req importRequest
		if err := decodeJSON(r, op, &req); err != nil {
			return nil, err
		}
		return ingest.Cells(req.Rows), nil
	}

	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, err
		}
		return nil, WrapKind(op, ErrBadRequest, err)
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	f, hdr, err := r.FormFile("file")
	if err != nil {
		return nil, WrapKind(op, ErrBadRequest, err)
	}
	defer f.Close() //nolint:errcheck

	h.logger.Debug(r.Context(), "reading upload",
		logger.String("file", hdr.Filename), logger.Int64("size", hdr.Size))
	return sheet.Read(f, hdr.Filename)
}
