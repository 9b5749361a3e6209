package httpserver

import (
	"errors"
	"net/http"

	checkouterrors "seamless/contexts/payment-core/checkout/domain/errors"
	checkouthttp "seamless/contexts/payment-core/checkout/transport/http"
	trackingerrors "seamless/contexts/payment-core/event-tracking/domain/errors"
	paypalerrors "seamless/contexts/payment-processors/paypal/domain/errors"
	stripeerrors "seamless/contexts/payment-processors/stripe/domain/errors"
	"seamless/internal/platform/vendorhttp"
)

func (s *Server) handleStartPayPal(w http.ResponseWriter, r *http.Request) {
	var req checkouthttp.PayPalCheckoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.checkout.Handler.StartPayPalHandler(r.Context(), req)
	if err != nil {
		s.writeCheckoutDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleCapturePayPal(w http.ResponseWriter, r *http.Request) {
	var req checkouthttp.PayPalCaptureRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.checkout.Handler.CapturePayPalHandler(r.Context(), r.PathValue("transaction_id"), req)
	if err != nil {
		s.writeCheckoutDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStartStripe(w http.ResponseWriter, r *http.Request) {
	var req checkouthttp.StripeCheckoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.checkout.Handler.StartStripeHandler(r.Context(), req)
	if err != nil {
		s.writeCheckoutDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleCaptureStripe(w http.ResponseWriter, r *http.Request) {
	var req checkouthttp.StripeCaptureRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.checkout.Handler.CaptureStripeHandler(r.Context(), r.PathValue("transaction_id"), req)
	if err != nil {
		s.writeCheckoutDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeCheckoutDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, checkouterrors.ErrInvalidCheckout),
		errors.Is(err, paypalerrors.ErrInvalidInvoice),
		errors.Is(err, stripeerrors.ErrInvalidRequest),
		errors.Is(err, stripeerrors.ErrPaymentMethodRequired),
		errors.Is(err, trackingerrors.ErrTransactionRequired):
		writeError(w, http.StatusBadRequest, "invalid_checkout", err.Error())
	case errors.Is(err, checkouterrors.ErrProcessorUnavailable),
		errors.Is(err, paypalerrors.ErrNotConfigured),
		errors.Is(err, stripeerrors.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "processor_unavailable", err.Error())
	case errors.Is(err, stripeerrors.ErrCustomerNotFound):
		writeError(w, http.StatusNotFound, "customer_not_found", err.Error())
	case errors.Is(err, trackingerrors.ErrTransactionBusy):
		writeError(w, http.StatusConflict, "transaction_busy", err.Error())
	case errors.Is(err, paypalerrors.ErrCaptureIncomplete),
		errors.Is(err, stripeerrors.ErrCaptureIncomplete),
		errors.Is(err, stripeerrors.ErrPaymentIntentNotReady),
		errors.Is(err, paypalerrors.ErrApprovalLinkMissing):
		writeError(w, http.StatusUnprocessableEntity, "payment_incomplete", err.Error())
	case vendorhttp.StatusCode(err) != 0 || isProcessorFailure(err):
		s.logger.Warn("processor request failed",
			"event", "checkout_processor_error",
			"module", moduleName,
			"layer", "platform",
			"path", r.URL.Path,
			"processor_status", vendorhttp.StatusCode(err),
			"error", err.Error(),
		)
		writeError(w, http.StatusBadGateway, "processor_error", err.Error())
	default:
		s.logger.Error("checkout request failed",
			"event", "checkout_request_failed",
			"module", moduleName,
			"layer", "platform",
			"path", r.URL.Path,
			"error", err.Error(),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func isProcessorFailure(err error) bool {
	for _, target := range []error{
		paypalerrors.ErrAuthentication,
		paypalerrors.ErrInvoiceCreation,
		paypalerrors.ErrOrderCreation,
		paypalerrors.ErrCaptureFailed,
		stripeerrors.ErrCustomerCreation,
		stripeerrors.ErrCustomerRetrieval,
		stripeerrors.ErrInvoiceCreation,
		stripeerrors.ErrInvoiceItemCreation,
		stripeerrors.ErrPaymentIntent,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
