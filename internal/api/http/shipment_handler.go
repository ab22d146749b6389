package http

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"rental-modification-backend/internal/domain"
	"rental-modification-backend/internal/logger"
	"rental-modification-backend/internal/service"
)

// ShipmentRecorder stores a status pushed by the shipment subsystem.
type ShipmentRecorder interface {
	Record(ctx context.Context, subOrderID string, status domain.ShipmentAckStatus) error
}

type ShipmentHandler struct {
	recorder     ShipmentRecorder
	earlyReturns service.EarlyReturnService
}

func NewShipmentHandler(recorder ShipmentRecorder, earlyReturns service.EarlyReturnService) *ShipmentHandler {
	return &ShipmentHandler{recorder: recorder, earlyReturns: earlyReturns}
}

type shipmentStatusBody struct {
	AckStatus domain.ShipmentAckStatus `json:"ack_status"`
}

type shipmentStatusResult struct {
	Applied bool            `json:"applied"`
	Request *earlyReturnDTO `json:"request,omitempty"`
}

// UpdateStatus records the pushed status and advances the live early return
// of the sub-order, if any. Polling by the sync job reaches the same state.
func (h *ShipmentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	subOrderID := mux.Vars(r)["subOrderID"]
	var body shipmentStatusBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	switch body.AckStatus {
	case domain.ShipmentAckPending, domain.ShipmentAckAcknowledged, domain.ShipmentAckCompleted:
	default:
		writeError(w, r, domain.NewInvalidArgument("ack_status", string(body.AckStatus), "unknown shipment status"))
		return
	}

	if err := h.recorder.Record(r.Context(), subOrderID, body.AckStatus); err != nil {
		writeError(w, r, err)
		return
	}
	req, err := h.earlyReturns.ApplyShipmentSignal(r.Context(), subOrderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logger.InfoContext(r.Context(), "Shipment status received", "subOrderID", subOrderID,
		"ackStatus", body.AckStatus, "applied", req != nil)
	writeJSON(w, http.StatusOK, shipmentStatusResult{Applied: req != nil, Request: mapEarlyReturn(req)})
}
