package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func publishN(b *Bus, n int, event Event) {
	ctx := context.Background()
	for i := 0; i < n; i++ {
		b.Publish(ctx, event)
	}
}

func TestBusDeliversToMatchingSubscriber(t *testing.T) {
	b := NewBus(4)
	defer b.Close()

	sub := b.Subscribe(Filter{})
	require.NotNil(t, sub)

	b.Publish(context.Background(), Event{
		EventType:           EventCreated,
		ResourceID:          7,
		ResourceName:        "primary-bucket",
		ResourceTypeName:    "gcs-bucket",
		ResourceTypeVersion: "v1",
	})

	select {
	case got := <-sub.Events():
		assert.Equal(t, EventCreated, got.EventType)
		assert.Equal(t, int64(7), got.ResourceID)
		assert.False(t, got.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("expected an event")
	}
}

func TestBusFiltersOnDispatchSide(t *testing.T) {
	b := NewBus(4)
	defer b.Close()

	bucketOnly := b.Subscribe(Filter{ResourceTypeName: "gcs-bucket"})
	deletesOnly := b.Subscribe(Filter{EventTypes: []EventType{EventDeleted}})

	b.Publish(context.Background(), Event{EventType: EventCreated, ResourceTypeName: "vm-instance"})
	b.Publish(context.Background(), Event{EventType: EventDeleted, ResourceTypeName: "gcs-bucket"})

	// bucketOnly sees just the bucket event.
	got := <-bucketOnly.Events()
	assert.Equal(t, EventDeleted, got.EventType)
	assert.Len(t, bucketOnly.Events(), 0)

	// deletesOnly sees just the delete.
	got = <-deletesOnly.Events()
	assert.Equal(t, EventDeleted, got.EventType)
	assert.Len(t, deletesOnly.Events(), 0)
}

func TestBusDropsWhenSubscriberBufferFull(t *testing.T) {
	b := NewBus(2)
	defer b.Close()

	sub := b.Subscribe(Filter{})
	publishN(b, 5, Event{EventType: EventModified, ResourceID: 1})

	assert.Equal(t, uint64(3), sub.Dropped())
	assert.Len(t, sub.ch, 2)
}

func TestBusPublishNeverBlocks(t *testing.T) {
	b := NewBus(1)
	defer b.Close()

	_ = b.Subscribe(Filter{})

	done := make(chan struct{})
	go func() {
		publishN(b, 100, Event{EventType: EventReconciled})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBus(4)
	defer b.Close()

	sub := b.Subscribe(Filter{})
	b.Unsubscribe(sub.ID())

	_, open := <-sub.Events()
	assert.False(t, open)

	// Publishing after unsubscribe must not panic.
	b.Publish(context.Background(), Event{EventType: EventCreated})
}

func TestCloseEndsAllSubscriptions(t *testing.T) {
	b := NewBus(4)

	sub1 := b.Subscribe(Filter{})
	sub2 := b.Subscribe(Filter{})
	b.Close()

	_, open := <-sub1.Events()
	assert.False(t, open)
	_, open = <-sub2.Events()
	assert.False(t, open)

	assert.Nil(t, b.Subscribe(Filter{}))
}

func TestFilterMatches(t *testing.T) {
	event := Event{
		EventType:        EventModified,
		ResourceID:       42,
		ResourceTypeName: "gcs-bucket",
	}

	assert.True(t, Filter{}.Matches(event))
	assert.True(t, Filter{ResourceTypeName: "gcs-bucket"}.Matches(event))
	assert.False(t, Filter{ResourceTypeName: "vm-instance"}.Matches(event))
	assert.True(t, Filter{ResourceID: 42}.Matches(event))
	assert.False(t, Filter{ResourceID: 41}.Matches(event))
	assert.True(t, Filter{EventTypes: []EventType{EventCreated, EventModified}}.Matches(event))
	assert.False(t, Filter{EventTypes: []EventType{EventDeleted}}.Matches(event))
}
