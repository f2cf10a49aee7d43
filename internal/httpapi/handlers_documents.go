package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gradverify/internal/domain"
)

// writeDocumentsUnavailable covers deployments running without object
// storage configured: the document routes stay registered but answer 503.
func writeDocumentsUnavailable(w http.ResponseWriter) {
	WriteError(w, http.StatusServiceUnavailable, "documents_unavailable", "document storage unavailable")
}

type uploadURLRequest struct {
	FileName string `json:"file_name"`
}

type uploadURLResponse struct {
	StorageKey string `json:"storage_key"`
	UploadURL  string `json:"upload_url"`
}

func (a *api) handleDocumentUploadURL(w http.ResponseWriter, r *http.Request) {
	if a.docSvc == nil {
		writeDocumentsUnavailable(w)
		return
	}
	sess, _ := CurrentSession(r.Context())

	var req uploadURLRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}
	if strings.TrimSpace(req.FileName) == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"file_name": "required"}))
		return
	}

	key, uploadURL, err := a.docSvc.UploadURL(r.Context(), sess)
	if err != nil {
		a.logError(r, "presign upload failed", err)
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, uploadURLResponse{StorageKey: key, UploadURL: uploadURL})
}

type registerDocumentRequest struct {
	Kind       string `json:"kind"`
	FileName   string `json:"file_name"`
	StorageKey string `json:"storage_key"`
}

func (a *api) handleDocumentRegister(w http.ResponseWriter, r *http.Request) {
	if a.docSvc == nil {
		writeDocumentsUnavailable(w)
		return
	}
	sess, _ := CurrentSession(r.Context())

	var req registerDocumentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	fields := map[string]string{}
	if strings.TrimSpace(req.FileName) == "" {
		fields["file_name"] = "required"
	}
	if strings.TrimSpace(req.StorageKey) == "" {
		fields["storage_key"] = "required"
	}
	// A student may only register documents under their own storage prefix.
	if !strings.HasPrefix(req.StorageKey, "documents/"+sess.UserID+"/") {
		fields["storage_key"] = "unknown storage key"
	}
	if len(fields) > 0 {
		WriteDomainError(w, domain.NewValidationError(fields))
		return
	}

	doc, err := a.docSvc.Register(r.Context(), sess, strings.TrimSpace(req.Kind), req.FileName, req.StorageKey)
	if err != nil {
		a.logError(r, "register document failed", err)
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

func (a *api) handleDocumentsMine(w http.ResponseWriter, r *http.Request) {
	if a.docSvc == nil {
		writeDocumentsUnavailable(w)
		return
	}
	sess, _ := CurrentSession(r.Context())

	docs, err := a.docSvc.ListMine(r.Context(), sess)
	if err != nil {
		a.logError(r, "list documents failed", err)
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"documents": toDocumentResponses(docs)})
}

func (a *api) handleDocumentsPending(w http.ResponseWriter, r *http.Request) {
	if a.docSvc == nil {
		writeDocumentsUnavailable(w)
		return
	}
	page, limit := pageParams(r)

	docs, pagination, err := a.docSvc.PendingQueue(r.Context(), page, limit)
	if err != nil {
		a.logError(r, "pending queue failed", err)
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"documents":  toDocumentResponses(docs),
		"pagination": pagination,
	})
}

func (a *api) handleDocumentURL(w http.ResponseWriter, r *http.Request) {
	if a.docSvc == nil {
		writeDocumentsUnavailable(w)
		return
	}
	sess, _ := CurrentSession(r.Context())

	downloadURL, err := a.docSvc.DownloadURL(r.Context(), sess, r.PathValue("id"))
	if err != nil {
		a.logError(r, "presign download failed", err)
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"download_url": downloadURL})
}

type reviewRequest struct {
	Note string `json:"note"`
}

func (a *api) handleDocumentApprove(w http.ResponseWriter, r *http.Request) {
	a.handleDocumentReview(w, r, a.docSvc.Approve)
}

func (a *api) handleDocumentReject(w http.ResponseWriter, r *http.Request) {
	a.handleDocumentReview(w, r, a.docSvc.Reject)
}

func (a *api) handleDocumentReview(w http.ResponseWriter, r *http.Request, review func(context.Context, domain.Session, string, string) error) {
	if a.docSvc == nil {
		writeDocumentsUnavailable(w)
		return
	}
	sess, _ := CurrentSession(r.Context())

	var req reviewRequest
	if _, err := decodeJSONAllowEmpty(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	if err := review(r.Context(), sess, r.PathValue("id"), strings.TrimSpace(req.Note)); err != nil {
		a.logError(r, "document review failed", err)
		WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleDocumentDelete(w http.ResponseWriter, r *http.Request) {
	if a.docSvc == nil {
		writeDocumentsUnavailable(w)
		return
	}
	sess, _ := CurrentSession(r.Context())

	if err := a.docSvc.Delete(r.Context(), sess, r.PathValue("id")); err != nil {
		a.logError(r, "delete document failed", err)
		WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type documentResponse struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Kind       string     `json:"kind,omitempty"`
	FileName   string     `json:"file_name"`
	Status     string     `json:"status"`
	ReviewNote string     `json:"review_note,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func toDocumentResponse(d domain.Document) documentResponse {
	return documentResponse{
		ID:         d.ID,
		UserID:     d.UserID,
		Kind:       d.Kind,
		FileName:   d.FileName,
		Status:     string(d.Status),
		ReviewNote: d.ReviewNote,
		ReviewedAt: d.ReviewedAt,
		CreatedAt:  d.CreatedAt,
	}
}

func toDocumentResponses(docs []domain.Document) []documentResponse {
	out := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentResponse(d))
	}
	return out
}

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return page, limit
}
