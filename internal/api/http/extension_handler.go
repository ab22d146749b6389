package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"rental-modification-backend/internal/domain"
	"rental-modification-backend/internal/service"
)

type ExtensionHandler struct {
	extensions service.ExtensionService
	queries    service.QueryService
}

func NewExtensionHandler(extensions service.ExtensionService, queries service.QueryService) *ExtensionHandler {
	return &ExtensionHandler{extensions: extensions, queries: queries}
}

type requestExtensionBody struct {
	NewEndDate        string `json:"new_end_date"`
	Reason            string `json:"reason"`
	PaymentMethod     string `json:"payment_method"`
	GatewayPaymentRef string `json:"gateway_payment_ref"`
}

type rejectBody struct {
	Reason string `json:"reason"`
}

func (h *ExtensionHandler) Request(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeAuthError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var body requestExtensionBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	date, err := parseDate("new_end_date", body.NewEndDate)
	if err != nil {
		writeError(w, r, err)
		return
	}

	req, err := h.extensions.Request(r.Context(), service.RequestExtensionInput{
		SubOrderID:        mux.Vars(r)["subOrderID"],
		RenterID:          userID,
		NewEndDate:        date,
		Reason:            body.Reason,
		PaymentMethod:     domain.PaymentMethod(body.PaymentMethod),
		GatewayPaymentRef: body.GatewayPaymentRef,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapExtension(req))
}

func (h *ExtensionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeAuthError(w, http.StatusUnauthorized, err.Error())
		return
	}
	req, err := h.extensions.Approve(r.Context(), mux.Vars(r)["id"], userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapExtension(req))
}

func (h *ExtensionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeAuthError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var body rejectBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	req, err := h.extensions.Reject(r.Context(), mux.Vars(r)["id"], userID, body.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapExtension(req))
}

func (h *ExtensionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeAuthError(w, http.StatusUnauthorized, err.Error())
		return
	}
	req, err := h.extensions.Cancel(r.Context(), mux.Vars(r)["id"], userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapExtension(req))
}

func (h *ExtensionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeAuthError(w, http.StatusUnauthorized, err.Error())
		return
	}
	req, err := h.queries.GetExtension(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapExtension(req))
}

func (h *ExtensionHandler) List(w http.ResponseWriter, r *http.Request) {
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
	statuses := splitStatuses[domain.ExtensionStatus](r.URL.Query().Get("status"))

	var items []domain.ExtensionRequest
	var total int32
	switch role := r.URL.Query().Get("role"); role {
	case "", "renter":
		items, total, err = h.queries.ListExtensionsForRenter(r.Context(), userID, page, limit, statuses)
	case "owner":
		items, total, err = h.queries.ListExtensionsForOwner(r.Context(), userID, page, limit, statuses)
	default:
		err = domain.NewInvalidArgument("role", role, "role must be renter or owner")
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := pageDTO[*extensionDTO]{Items: make([]*extensionDTO, 0, len(items)), Total: total, Page: page, Limit: limit}
	for i := range items {
		out.Items = append(out.Items, mapExtension(&items[i]))
	}
	writeJSON(w, http.StatusOK, out)
}
