package controllers

import (
	"net/http"

	"github.com/angelmondragon/arepera-backend/api/responses"
	"github.com/angelmondragon/arepera-backend/api/validators"
	"github.com/angelmondragon/arepera-backend/internal/checkout"
	"github.com/angelmondragon/arepera-backend/pkg/logger"
)

// CheckoutCreate snapshots the cart into a pending order and charges the card.
func CheckoutCreate(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("checkout"))
			return
		}
		caller, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body checkout.Input
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateCheckoutSession(r.Context(), caller, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// OrderComplete marks a paid order as completed.
func OrderComplete(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("checkout"))
			return
		}
		caller, err := callerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.CompleteOrder(r.Context(), caller, orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"orderId": orderID, "status": "completed"})
	}
}
