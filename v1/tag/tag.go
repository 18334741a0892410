package tag

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	rerrors "github.com/mirkobrombin/go-rooted/v1/errors"
	"github.com/mirkobrombin/go-rooted/v1/metrics"
)

// Tag identifies a lock domain. The zero Tag is never issued.
type Tag struct {
	salt uint64
	seq  uint64
}

// IsZero reports whether t is the zero Tag.
func (t Tag) IsZero() bool {
	return t == Tag{}
}

// Seq returns the sequence number of t within its allocator.
func (t Tag) Seq() uint64 {
	return t.seq
}

func (t Tag) String() string {
	return fmt.Sprintf("tag(%016x:%d)", t.salt, t.seq)
}

// Allocator issues unique tags. It is safe for concurrent use.
type Allocator struct {
	salt uint64
	last atomic.Uint64
}

// NewAllocator returns an allocator with a fresh random salt.
func NewAllocator() *Allocator {
	return newAllocatorAt(randomSalt(), 0)
}

func newAllocatorAt(salt, last uint64) *Allocator {
	a := &Allocator{salt: salt}
	a.last.Store(last)
	return a
}

func randomSalt() uint64 {
	id := uuid.New()
	return binary.LittleEndian.Uint64(id[:8])
}

// Allocate returns a tag no previous call on a has returned. It panics with
// ErrTagExhausted once the sequence space is used up.
func (a *Allocator) Allocate() Tag {
	for {
		cur := a.last.Load()
		if cur == math.MaxUint64 {
			panic(fmt.Errorf("%w: allocator %016x issued %d tags", rerrors.ErrTagExhausted, a.salt, cur))
		}
		if a.last.CompareAndSwap(cur, cur+1) {
			metrics.TagCounter.Inc()
			return Tag{salt: a.salt, seq: cur + 1}
		}
	}
}

var (
	defaultOnce      sync.Once
	defaultAllocator *Allocator
)

// Default returns the process-wide allocator, creating it on first use.
func Default() *Allocator {
	defaultOnce.Do(func() {
		defaultAllocator = NewAllocator()
	})
	return defaultAllocator
}

// New allocates a tag from the process-wide allocator.
func New() Tag {
	return Default().Allocate()
}
