package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"portal-dm/domain/event"
)

type recordingSink struct {
	deltas []event.Delta
}

func (r *recordingSink) Consume(_ context.Context, d event.Delta) error {
	r.deltas = append(r.deltas, d)
	return nil
}

func Test_Registry_Subscribe_And_Resolve(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// Given one user with two open tabs
	first := &recordingSink{}
	second := &recordingSink{}
	registry.Subscribe("sub-1", "bob", first)
	registry.Subscribe("sub-2", "bob", second)

	sinks := registry.GetSinksForUser("bob")
	req.Len(sinks, 2)

	// Nobody is watching alice
	req.Nil(registry.GetSinksForUser("alice"))

	req.ElementsMatch([]string{"bob"}, registry.Users())
}

func Test_Registry_Unsubscribe_Cleans_Empty_Sets(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.Subscribe("sub-1", "bob", &recordingSink{})
	registry.Subscribe("sub-2", "bob", &recordingSink{})

	registry.Unsubscribe("sub-1", "bob")
	req.Len(registry.GetSinksForUser("bob"), 1)
	req.ElementsMatch([]string{"bob"}, registry.Users())

	registry.Unsubscribe("sub-2", "bob")
	req.Nil(registry.GetSinksForUser("bob"))
	req.Empty(registry.Users())

	// Unknown ids are a no-op, not a crash
	registry.Unsubscribe("sub-404", "bob")
}
