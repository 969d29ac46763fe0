package lifecycle

import (
	"context"
	"errors"
	"testing"
)

type recordedComponent struct {
	name     string
	events   *[]string
	startErr error
	stopErr  error
}

func (c *recordedComponent) Start(ctx context.Context) error {
	*c.events = append(*c.events, "start:"+c.name)
	return c.startErr
}

func (c *recordedComponent) Stop(ctx context.Context) error {
	*c.events = append(*c.events, "stop:"+c.name)
	return c.stopErr
}

func TestRuntimeStopsInReverseOrder(t *testing.T) {
	t.Parallel()

	var events []string
	r := NewRuntime(
		&recordedComponent{name: "a", events: &events},
		&recordedComponent{name: "b", events: &events},
	)

	ctx := context.Background()
	if err := r.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := r.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	want := []string{"start:a", "start:b", "stop:b", "stop:a"}
	if len(events) != len(want) {
		t.Fatalf("unexpected events: %v", events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("unexpected events: %v", events)
		}
	}
}

func TestRuntimeUnwindsOnStartFailure(t *testing.T) {
	t.Parallel()

	var events []string
	boom := errors.New("boom")
	r := NewRuntime(
		&recordedComponent{name: "a", events: &events},
		&recordedComponent{name: "b", events: &events, startErr: boom},
		&recordedComponent{name: "c", events: &events},
	)

	err := r.Start(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected start error, got %v", err)
	}

	want := []string{"start:a", "start:b", "stop:a"}
	if len(events) != len(want) {
		t.Fatalf("unexpected events: %v", events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("unexpected events: %v", events)
		}
	}
}
