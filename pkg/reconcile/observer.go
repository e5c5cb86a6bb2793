package reconcile

import "github.com/agentstation/taxsync/pkg/differ"

// Observer receives reconciliation events as they happen.
// Implementations must not block.
type Observer interface {
	// ObserveChange is called after a change was applied.
	ObserveChange(change differ.Change)
	// ObserveFailure is called when applying a change failed.
	ObserveFailure(change differ.Change, err error)
	// ObserveRun is called once per run that got past loading.
	ObserveRun(result *Result)
}

// NopObserver ignores all events.
type NopObserver struct{}

func (NopObserver) ObserveChange(differ.Change)         {}
func (NopObserver) ObserveFailure(differ.Change, error) {}
func (NopObserver) ObserveRun(*Result)                  {}

// Observers fans events out to several observers in order.
type Observers []Observer

// ObserveChange implements Observer.
func (o Observers) ObserveChange(change differ.Change) {
	for _, obs := range o {
		obs.ObserveChange(change)
	}
}

// ObserveFailure implements Observer.
func (o Observers) ObserveFailure(change differ.Change, err error) {
	for _, obs := range o {
		obs.ObserveFailure(change, err)
	}
}

// ObserveRun implements Observer.
func (o Observers) ObserveRun(result *Result) {
	for _, obs := range o {
		obs.ObserveRun(result)
	}
}
