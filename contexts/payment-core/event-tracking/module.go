package eventtracking

import (
	"context"
	"log/slog"

	httpadapter "seamless/contexts/payment-core/event-tracking/adapters/http"
	"seamless/contexts/payment-core/event-tracking/adapters/memory"
	"seamless/contexts/payment-core/event-tracking/application"
	"seamless/contexts/payment-core/event-tracking/ports"
)

type Module struct {
	Handler      httpadapter.Handler
	Tracker      *application.Tracker
	Recorder     *application.Recorder
	Transactions *application.Manager
	Emitter      application.Emitter
	Queries      application.QueryService
	Store        *memory.Store
}

type Dependencies struct {
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func NewModule(deps Dependencies) Module {
	tracker := application.NewTracker(deps.Logger)
	recorder := application.NewRecorder(tracker, deps.Clock, deps.Logger)
	queries := application.QueryService{Store: recorder.Store}
	return Module{
		Handler: httpadapter.Handler{
			Queries: queries,
			Logger:  deps.Logger,
		},
		Tracker:  tracker,
		Recorder: recorder,
		Transactions: &application.Manager{
			Tracker: tracker,
			IDGen:   deps.IDGenerator,
			Clock:   deps.Clock,
			Logger:  deps.Logger,
		},
		Emitter: application.Emitter{
			Tracker: tracker,
			IDGen:   deps.IDGenerator,
			Clock:   deps.Clock,
			Records: recorder.Store,
		},
		Queries: queries,
	}
}

// Initialize wires store behind the recorder, the query surface and
// transaction resumption, then enables tracking.
func (m Module) Initialize(ctx context.Context, store ports.TransactionStore) error {
	if err := m.Recorder.Initialize(ctx, store); err != nil {
		return err
	}
	if m.Transactions.Store == nil {
		m.Transactions.Store = m.Recorder.Store()
	}
	return nil
}

func (m Module) Close() error {
	return m.Recorder.Close()
}

func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Clock:       store,
		IDGenerator: store,
		Logger:      logger,
	})
	module.Store = store
	return module
}
