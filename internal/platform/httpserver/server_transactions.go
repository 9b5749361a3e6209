package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	trackingerrors "seamless/contexts/payment-core/event-tracking/domain/errors"
	trackinghttp "seamless/contexts/payment-core/event-tracking/transport/http"
)

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	resp, err := s.tracking.Handler.GetTransactionHandler(
		r.Context(),
		r.PathValue("transaction_id"),
		r.URL.Query().Get("processor"),
	)
	if err != nil {
		writeTrackingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListTransactionEvents(w http.ResponseWriter, r *http.Request) {
	resp, err := s.tracking.Handler.ListTransactionEventsHandler(r.Context(), r.PathValue("transaction_id"))
	if err != nil {
		writeTrackingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCustomerTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := trackinghttp.CustomerTransactionsRequest{
		CustomerID: r.PathValue("customer_id"),
	}
	if limitRaw := query.Get("limit"); limitRaw != "" {
		limit, err := strconv.Atoi(limitRaw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		req.Limit = limit
	}
	if offsetRaw := query.Get("offset"); offsetRaw != "" {
		offset, err := strconv.Atoi(offsetRaw)
		if err != nil || offset < 0 {
			writeError(w, http.StatusBadRequest, "invalid_offset", "offset must be a non-negative integer")
			return
		}
		req.Offset = offset
	}

	resp, err := s.tracking.Handler.CustomerTransactionsHandler(r.Context(), req)
	if err != nil {
		writeTrackingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResourceRecords(w http.ResponseWriter, r *http.Request) {
	resp, err := s.tracking.Handler.ResourceRecordsHandler(r.Context(), trackinghttp.ResourceRecordsRequest{
		ResourceID: r.PathValue("resource_id"),
		Processor:  r.PathValue("processor"),
	})
	if err != nil {
		writeTrackingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeTrackingDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, trackingerrors.ErrTransactionNotFound):
		writeError(w, http.StatusNotFound, "transaction_not_found", err.Error())
	case errors.Is(err, trackingerrors.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
	case errors.Is(err, trackingerrors.ErrTransactionRequired):
		writeError(w, http.StatusBadRequest, "transaction_required", err.Error())
	case errors.Is(err, trackingerrors.ErrStoreNotInitialized):
		writeError(w, http.StatusServiceUnavailable, "tracking_unavailable", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
