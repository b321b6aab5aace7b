package gatekeeperhandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/zkkb/gatekeeper"
	"github.com/ruteri/zkkb/interfaces"
)

// maxBodySize is the maximum allowed request body size (1MB).
const maxBodySize = 1024 * 1024

// Gatekeeper is the subset of gatekeeper.Gatekeeper the handler needs.
type Gatekeeper interface {
	Root(ctx context.Context, boardID string) (*gatekeeper.RootEntry, error)
	UpdateRoot(ctx context.Context, boardID, newRoot string, proof *interfaces.MembershipProof) (*gatekeeper.RootEntry, error)
	Authorize(ctx context.Context, boardID string, proof *interfaces.MembershipProof) error
}

// Handler processes HTTP requests for proof-gated board actions.
type Handler struct {
	gk  Gatekeeper
	log *slog.Logger
}

func NewHandler(gk Gatekeeper, log *slog.Logger) *Handler {
	return &Handler{gk: gk, log: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Put("/api/boards/{board_id}/root", h.HandleSetRoot)
	r.Get("/api/boards/{board_id}/root", h.HandleGetRoot)
	r.Post("/api/boards/{board_id}/actions", h.HandleAction)
}

// HandleSetRoot registers a board's membership root.
//
// URL format: PUT /api/boards/{board_id}/root
// Request body: SetRootRequest
// Response: RootResponse
func (h *Handler) HandleSetRoot(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "board_id")

	var req SetRootRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	entry, err := h.gk.UpdateRoot(r.Context(), boardID, req.Root, req.Proof)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, rootResponse(entry))
}

// HandleGetRoot returns a board's current root.
//
// URL format: GET /api/boards/{board_id}/root
func (h *Handler) HandleGetRoot(w http.ResponseWriter, r *http.Request) {
	entry, err := h.gk.Root(r.Context(), chi.URLParam(r, "board_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, rootResponse(entry))
}

// HandleAction accepts an anonymous action on a board.
//
// URL format: POST /api/boards/{board_id}/actions
// Request body: interfaces.MembershipProof
// Response: ActionResponse
func (h *Handler) HandleAction(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "board_id")

	var proof interfaces.MembershipProof
	if err := decodeBody(w, r, &proof); err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.gk.Authorize(r.Context(), boardID, &proof); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, ActionResponse{Status: "accepted", Nullifier: proof.Nullifier})
}

func rootResponse(entry *gatekeeper.RootEntry) RootResponse {
	return RootResponse{BoardID: entry.BoardID, Root: entry.Root, UpdatedAt: entry.UpdatedAt}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", interfaces.ErrInvalidInput, err)
	}
	return nil
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, interfaces.ErrInvalidInput):
		return http.StatusBadRequest, codeInvalidInput
	case errors.Is(err, interfaces.ErrStaleAuthorization):
		return http.StatusConflict, codeStaleRoot
	case errors.Is(err, interfaces.ErrNullifierUsed):
		return http.StatusConflict, codeNullifierUsed
	case errors.Is(err, interfaces.ErrNotAuthorized):
		return http.StatusUnauthorized, codeNotAuthorized
	case errors.Is(err, interfaces.ErrBoardNotFound):
		return http.StatusNotFound, codeBoardNotFound
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.log.Error("Request failed", "err", err)
		msg = "internal server error"
	}
	h.writeJSON(w, status, ErrorResponse{Error: msg, Code: code})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}
