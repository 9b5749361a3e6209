package checkout

import (
	"log/slog"

	httpadapter "seamless/contexts/payment-core/checkout/adapters/http"
	"seamless/contexts/payment-core/checkout/application"
	"seamless/contexts/payment-core/checkout/ports"
	trackingapp "seamless/contexts/payment-core/event-tracking/application"
)

type Module struct {
	Handler httpadapter.Handler
	Service application.Service
}

type Dependencies struct {
	Transactions *trackingapp.Manager
	PayPal       ports.PayPalFlow
	Stripe       ports.StripeFlow
	Logger       *slog.Logger
}

func NewModule(deps Dependencies) Module {
	service := application.Service{
		Transactions: deps.Transactions,
		PayPal:       deps.PayPal,
		Stripe:       deps.Stripe,
		Logger:       deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Service: service,
			Logger:  deps.Logger,
		},
		Service: service,
	}
}
