package paypal

import (
	"log/slog"

	"seamless/contexts/payment-processors/paypal/adapters/rest"
	"seamless/contexts/payment-processors/paypal/application"
	"seamless/contexts/payment-processors/paypal/domain/entities"
	"seamless/contexts/payment-processors/paypal/ports"
)

type Module struct {
	Service application.Service
}

type Dependencies struct {
	Config     rest.Config
	Experience entities.ExperienceContext
	Events     ports.EventEmitter
	Clock      ports.Clock
	Logger     *slog.Logger
}

func NewModule(deps Dependencies) (Module, error) {
	client, err := rest.NewClient(deps.Config, deps.Logger)
	if err != nil {
		return Module{}, err
	}
	return Module{
		Service: application.Service{
			Gateway:    client,
			Events:     deps.Events,
			Clock:      deps.Clock,
			Experience: deps.Experience,
			Logger:     deps.Logger,
		},
	}, nil
}
