package http

import (
	"net/http"

	"github.com/corvidmail/corvid/internal/identity/service"
	"github.com/corvidmail/corvid/pkg/httpx"
	"github.com/corvidmail/corvid/pkg/identsdk"
)

// SessionsHandler lists and revokes the caller's device sessions.
type SessionsHandler struct {
	SessionService *service.SessionService
}

// HandleList handles GET /v1/sessions
//
//	@Summary		List the caller's sessions
//	@Description	Returns every live session with device metadata. The session behind the presented token is flagged as current.
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}		identsdk.SessionInfo	"Active sessions"
//	@Failure		401	{object}	identsdk.ErrorResponse	"Invalid or missing access token"
//	@Router			/v1/sessions [get].
func (h *SessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := authedUserID(w, ctx)
	if !ok {
		return
	}
	claims, _ := httpx.ClaimsFromContext(ctx)

	sessions, err := h.SessionService.List(ctx, userID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	out := make([]identsdk.SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionInfo(s, claims.SID))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleRevoke handles DELETE /v1/sessions/{id}
//
//	@Summary		Revoke one session
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Session ID"
//	@Success		204	"Session revoked"
//	@Failure		403	{object}	identsdk.ErrorResponse	"Session belongs to someone else"
//	@Failure		404	{object}	identsdk.ErrorResponse	"Session not found"
//	@Router			/v1/sessions/{id} [delete].
func (h *SessionsHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := authedUserID(w, ctx)
	if !ok {
		return
	}

	if err := h.SessionService.Revoke(ctx, userID, r.PathValue("id"), requestIP(r)); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
