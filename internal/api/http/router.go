package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"rental-modification-backend/internal/security"
)

type Handlers struct {
	EarlyReturns *EarlyReturnHandler
	Extensions   *ExtensionHandler
	SubOrders    *SubOrderHandler
	Shipments    *ShipmentHandler
}

// NewRouter mounts the user API under /v1 and the shipment webhook under
// /internal; the latter only accepts service tokens.
func NewRouter(h Handlers, auth *AuthMiddleware) *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestLogging)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(auth.Require(security.TokenTypeAccess))

	v1.HandleFunc("/sub-orders/{subOrderID}", h.SubOrders.Get).Methods(http.MethodGet)
	v1.HandleFunc("/sub-orders/{subOrderID}/early-returns", h.EarlyReturns.Create).Methods(http.MethodPost)
	v1.HandleFunc("/sub-orders/{subOrderID}/extensions", h.Extensions.Request).Methods(http.MethodPost)

	v1.HandleFunc("/early-returns", h.EarlyReturns.List).Methods(http.MethodGet)
	v1.HandleFunc("/early-returns/{id}", h.EarlyReturns.Get).Methods(http.MethodGet)
	v1.HandleFunc("/early-returns/{id}", h.EarlyReturns.Update).Methods(http.MethodPatch)
	v1.HandleFunc("/early-returns/{id}", h.EarlyReturns.Delete).Methods(http.MethodDelete)
	v1.HandleFunc("/early-returns/{id}/cancel", h.EarlyReturns.Cancel).Methods(http.MethodPost)
	v1.HandleFunc("/early-returns/{id}/confirm", h.EarlyReturns.Confirm).Methods(http.MethodPost)

	v1.HandleFunc("/extensions", h.Extensions.List).Methods(http.MethodGet)
	v1.HandleFunc("/extensions/{id}", h.Extensions.Get).Methods(http.MethodGet)
	v1.HandleFunc("/extensions/{id}/approve", h.Extensions.Approve).Methods(http.MethodPost)
	v1.HandleFunc("/extensions/{id}/reject", h.Extensions.Reject).Methods(http.MethodPost)
	v1.HandleFunc("/extensions/{id}/cancel", h.Extensions.Cancel).Methods(http.MethodPost)

	v1.HandleFunc("/notifications", h.SubOrders.ListNotifications).Methods(http.MethodGet)
	v1.HandleFunc("/notifications/{id}/read", h.SubOrders.MarkNotificationRead).Methods(http.MethodPost)

	internal := r.PathPrefix("/internal").Subrouter()
	internal.Use(auth.Require(security.TokenTypeService))
	internal.HandleFunc("/shipments/{subOrderID}/status", h.Shipments.UpdateStatus).Methods(http.MethodPost)

	return r
}
