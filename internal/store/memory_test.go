package store

import (
	"context"
	"reflect"
	"testing"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	got, err := s.Load(ctx, "missing")
	if err != nil {
		t.Fatalf("Load missing key: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("missing key yielded %v, want empty", got)
	}

	want := map[int]int{0: 1, 4: 3}
	if err := s.Save(ctx, "k", want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err = s.Load(ctx, "k")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Load = %v, want %v", got, want)
	}

	if err := s.Clear(ctx, "k"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	got, _ = s.Load(ctx, "k")
	if len(got) != 0 {
		t.Fatalf("Load after Clear = %v, want empty", got)
	}
}

func TestMemoryStore_SaveReplacesWhole(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.Save(ctx, "k", map[int]int{0: 1, 1: 2})
	s.Save(ctx, "k", map[int]int{2: 4})

	got, _ := s.Load(ctx, "k")
	if !reflect.DeepEqual(got, map[int]int{2: 4}) {
		t.Fatalf("Load = %v, want map[2:4]", got)
	}
}

func TestMemoryStore_CopiesDefendAgainstMutation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	in := map[int]int{0: 1}
	s.Save(ctx, "k", in)
	in[0] = 9

	got, _ := s.Load(ctx, "k")
	if got[0] != 1 {
		t.Fatalf("stored value followed caller mutation: %v", got)
	}

	got[0] = 7
	again, _ := s.Load(ctx, "k")
	if again[0] != 1 {
		t.Fatalf("stored value followed reader mutation: %v", again)
	}
}
