package tag

import (
	"errors"
	"math"
	"sync"
	"testing"

	"golang.org/x/sync/errgroup"

	rerrors "github.com/mirkobrombin/go-rooted/v1/errors"
)

func TestAllocateUnique(t *testing.T) {
	a := NewAllocator()
	seen := make(map[Tag]struct{})
	for i := 0; i < 1000; i++ {
		tg := a.Allocate()
		if tg.IsZero() {
			t.Fatal("allocator issued the zero tag")
		}
		if _, dup := seen[tg]; dup {
			t.Fatalf("duplicate tag %v", tg)
		}
		seen[tg] = struct{}{}
	}
}

func TestAllocateConcurrentUnique(t *testing.T) {
	const workers, perWorker = 8, 500
	var (
		mu   sync.Mutex
		seen = make(map[Tag]struct{}, workers*perWorker)
		g    errgroup.Group
	)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			local := make([]Tag, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				local = append(local, New())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, tg := range local {
				if _, dup := seen[tg]; dup {
					return errors.New("duplicate tag " + tg.String())
				}
				seen[tg] = struct{}{}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if len(seen) != workers*perWorker {
		t.Fatalf("expected %d tags, got %d", workers*perWorker, len(seen))
	}
}

func TestAllocateSequential(t *testing.T) {
	a := newAllocatorAt(7, 0)
	first, second := a.Allocate(), a.Allocate()
	if first.Seq() != 1 || second.Seq() != 2 {
		t.Fatalf("expected seq 1,2 got %d,%d", first.Seq(), second.Seq())
	}
	if first.String() != "tag(0000000000000007:1)" {
		t.Fatalf("unexpected string %q", first.String())
	}
}

func TestSaltDistinguishesAllocators(t *testing.T) {
	a := newAllocatorAt(1, 0)
	b := newAllocatorAt(2, 0)
	if a.Allocate() == b.Allocate() {
		t.Fatal("tags from differently salted allocators compared equal")
	}
}

func TestAllocateExhaustionPanics(t *testing.T) {
	a := newAllocatorAt(1, math.MaxUint64-1)
	if tg := a.Allocate(); tg.Seq() != math.MaxUint64 {
		t.Fatalf("expected last seq, got %d", tg.Seq())
	}
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, rerrors.ErrTagExhausted) {
			t.Fatalf("expected ErrTagExhausted panic, got %v", r)
		}
		if a.last.Load() != math.MaxUint64 {
			t.Fatal("counter moved past exhaustion")
		}
	}()
	a.Allocate()
}

func TestDefaultIsSingleton(t *testing.T) {
	if Default() != Default() {
		t.Fatal("Default returned different allocators")
	}
}
