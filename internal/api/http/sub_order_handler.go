package http

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"rental-modification-backend/internal/domain"
	"rental-modification-backend/internal/service"
)

type SubOrderHandler struct {
	queries       service.QueryService
	notifications service.NotificationService
}

func NewSubOrderHandler(queries service.QueryService, notifications service.NotificationService) *SubOrderHandler {
	return &SubOrderHandler{queries: queries, notifications: notifications}
}

func (h *SubOrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeAuthError(w, http.StatusUnauthorized, err.Error())
		return
	}
	agreement, err := h.queries.GetSubOrder(r.Context(), userID, mux.Vars(r)["subOrderID"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSubOrder(agreement))
}

func (h *SubOrderHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeAuthError(w, http.StatusUnauthorized, err.Error())
		return
	}
	page, limit, err := pagination(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	notes, total, err := h.notifications.GetNotifications(r.Context(), userID, page, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if notes == nil {
		notes = []domain.Notification{}
	}
	writeJSON(w, http.StatusOK, pageDTO[domain.Notification]{Items: notes, Total: total, Page: page, Limit: limit})
}

func (h *SubOrderHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeAuthError(w, http.StatusUnauthorized, err.Error())
		return
	}
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, r, domain.NewInvalidArgument("id", raw, "notification id must be a number"))
		return
	}
	if err := h.notifications.MarkAsRead(r.Context(), userID, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
