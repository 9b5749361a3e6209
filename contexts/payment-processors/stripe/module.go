package stripe

import (
	"log/slog"

	"seamless/contexts/payment-processors/stripe/adapters/rest"
	"seamless/contexts/payment-processors/stripe/application"
	"seamless/contexts/payment-processors/stripe/ports"
)

type Module struct {
	Service application.Service
}

type Dependencies struct {
	Config rest.Config
	Events ports.EventEmitter
	Clock  ports.Clock
	Logger *slog.Logger
}

func NewModule(deps Dependencies) (Module, error) {
	client, err := rest.NewClient(deps.Config, deps.Logger)
	if err != nil {
		return Module{}, err
	}
	return Module{
		Service: application.Service{
			Gateway: client,
			Events:  deps.Events,
			Clock:   deps.Clock,
			Logger:  deps.Logger,
		},
	}, nil
}
