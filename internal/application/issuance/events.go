// internal/application/issuance/events.go
package issuance

import (
	"context"
	"time"

	dom "splforge/internal/domain/issuance"
)

// Event is emitted every time the orchestrator changes stage.
type Event struct {
	Stage dom.Stage
	// Previous is the stage that just ended and Elapsed how long it took.
	Previous dom.Stage
	Elapsed  time.Duration
	At       time.Time

	MintAddress string
	Reference   string

	// Kind and Err are set on StageFailed.
	Kind dom.Kind
	Err  error
}

// Observer receives stage events. Implementations must not block for long;
// they run on the pipeline goroutine.
type Observer interface {
	OnStage(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) OnStage(ctx context.Context, ev Event) { f(ctx, ev) }

type observers []Observer

func (os observers) OnStage(ctx context.Context, ev Event) {
	for _, o := range os {
		if o != nil {
			o.OnStage(ctx, ev)
		}
	}
}
