//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"portal-dm/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// DeltaSink receives conversation-list deltas for one live subscriber.
// Consume must never block indefinitely: a slow subscriber is the sink's
// problem, not the notifier's.
type DeltaSink interface {
	Consume(ctx context.Context, d event.Delta) error
}

// ChangeSink receives raw store change events, e.g. the search index.
type ChangeSink interface {
	Consume(ctx context.Context, e event.ChangeEvent) error
}

// IRegistry tracks which live subscribers are watching which user's inbox.
type IRegistry interface {
	GetSinksForUser(userID string) []DeltaSink
	Subscribe(subscriptionID string, userID string, sink DeltaSink)
	Unsubscribe(subscriptionID string, userID string)
	Users() []string
}
