package http

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"rental-modification-backend/internal/domain"
	"rental-modification-backend/internal/service"
)

type EarlyReturnHandler struct {
	earlyReturns service.EarlyReturnService
	queries      service.QueryService
}

func NewEarlyReturnHandler(earlyReturns service.EarlyReturnService, queries service.QueryService) *EarlyReturnHandler {
	return &EarlyReturnHandler{earlyReturns: earlyReturns, queries: queries}
}

type createEarlyReturnBody struct {
	RequestedReturnDate string          `json:"requested_return_date"`
	UseOriginalAddress  bool            `json:"use_original_address"`
	ReturnAddress       *domain.Address `json:"return_address"`
	PaymentMethod       string          `json:"payment_method"`
	PaymentRef          string          `json:"payment_ref"`
	Notes               string          `json:"notes"`
}

type updateEarlyReturnBody struct {
	RequestedReturnDate *string `json:"requested_return_date"`
	Notes               *string `json:"notes"`
}

type cancelBody struct {
	Reason string `json:"reason"`
}

type confirmReturnBody struct {
	Notes        string              `json:"notes"`
	QualityCheck domain.QualityCheck `json:"quality_check"`
}

type cancellationDTO struct {
	Request             *earlyReturnDTO `json:"request"`
	RefundedAmount      domain.Amount   `json:"refunded_amount"`
	RefundTransactionID string          `json:"refund_transaction_id,omitempty"`
}

func (h *EarlyReturnHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeAuthError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var body createEarlyReturnBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	date, err := parseDate("requested_return_date", body.RequestedReturnDate)
	if err != nil {
		writeError(w, r, err)
		return
	}

	req, err := h.earlyReturns.Create(r.Context(), service.CreateEarlyReturnInput{
		SubOrderID:          mux.Vars(r)["subOrderID"],
		RenterID:            userID,
		RequestedReturnDate: date,
		UseOriginalAddress:  body.UseOriginalAddress,
		ReturnAddress:       body.ReturnAddress,
		PaymentMethod:       domain.PaymentMethod(body.PaymentMethod),
		PaymentRef:          body.PaymentRef,
		Notes:               body.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapEarlyReturn(req))
}

func (h *EarlyReturnHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeAuthError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var body updateEarlyReturnBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	in := service.UpdateEarlyReturnInput{RequestID: mux.Vars(r)["id"], RequesterID: userID, Notes: body.Notes}
	if body.RequestedReturnDate != nil {
		date, err := parseDate("requested_return_date", *body.RequestedReturnDate)
		if err != nil {
			writeError(w, r, err)
			return
		}
		in.NewReturnDate = &date
	}

	req, err := h.earlyReturns.Update(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapEarlyReturn(req))
}

func (h *EarlyReturnHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeAuthError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var body cancelBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.earlyReturns.Cancel(r.Context(), mux.Vars(r)["id"], userID, body.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapCancellation(result))
}

func (h *EarlyReturnHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeAuthError(w, http.StatusUnauthorized, err.Error())
		return
	}
	result, err := h.earlyReturns.Delete(r.Context(), mux.Vars(r)["id"], userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapCancellation(result))
}

func (h *EarlyReturnHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeAuthError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var body confirmReturnBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	req, err := h.earlyReturns.ConfirmReturn(r.Context(), mux.Vars(r)["id"], userID, body.Notes, body.QualityCheck)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapEarlyReturn(req))
}

func (h *EarlyReturnHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeAuthError(w, http.StatusUnauthorized, err.Error())
		return
	}
	req, err := h.queries.GetEarlyReturn(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapEarlyReturn(req))
}

// List serves ?role=renter|owner&page=&limit=&status=A,B; the caller is always the subject.
func (h *EarlyReturnHandler) List(w http.ResponseWriter, r *http.Request) {
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
	statuses := splitStatuses[domain.EarlyReturnStatus](r.URL.Query().Get("status"))

	var items []domain.EarlyReturnRequest
	var total int32
	switch role := r.URL.Query().Get("role"); role {
	case "", "renter":
		items, total, err = h.queries.ListEarlyReturnsForRenter(r.Context(), userID, page, limit, statuses)
	case "owner":
		items, total, err = h.queries.ListEarlyReturnsForOwner(r.Context(), userID, page, limit, statuses)
	default:
		err = domain.NewInvalidArgument("role", role, "role must be renter or owner")
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := pageDTO[*earlyReturnDTO]{Items: make([]*earlyReturnDTO, 0, len(items)), Total: total, Page: page, Limit: limit}
	for i := range items {
		out.Items = append(out.Items, mapEarlyReturn(&items[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func mapCancellation(c *service.EarlyReturnCancellation) cancellationDTO {
	return cancellationDTO{
		Request:             mapEarlyReturn(c.Request),
		RefundedAmount:      c.RefundedAmount,
		RefundTransactionID: c.RefundTransactionID,
	}
}

// pagination reads page and limit, defaulting to the first page of 20.
func pagination(r *http.Request) (int32, int32, error) {
	page, limit := int32(1), int32(20)
	q := r.URL.Query()
	if raw := q.Get("page"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return 0, 0, domain.NewInvalidArgument("page", raw, "page must be a number")
		}
		page = int32(v)
	}
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return 0, 0, domain.NewInvalidArgument("limit", raw, "limit must be a number")
		}
		limit = int32(v)
	}
	return page, limit, nil
}
