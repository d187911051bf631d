package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitFillsIdentityAndTimestamp(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)

	pub.Emit(context.Background(), Event{
		Action:    ActionReportIngested,
		SubjectID: "subj-1",
	})

	events, err := store.ListBySubject(context.Background(), "subj-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.NotEqual(t, uuid.Nil, events[0].ID)
	assert.False(t, events[0].Timestamp.IsZero())
	assert.Equal(t, ActionReportIngested, events[0].Action)
}

type failingSink struct{}

func (failingSink) Append(context.Context, Event) error { return errors.New("broker down") }

// A sink outage never propagates to the business call.
func TestEmitSwallowsSinkFailure(t *testing.T) {
	pub := NewPublisher(failingSink{})

	assert.NotPanics(t, func() {
		pub.Emit(context.Background(), Event{Action: ActionAnalysisCompleted, SubjectID: "subj-1"})
	})
}

func TestEmitOnNilPublisher(t *testing.T) {
	var pub *Publisher
	assert.NotPanics(t, func() {
		pub.Emit(context.Background(), Event{Action: ActionReportDuplicate})
	})
}
