package core

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
)

// DefaultPoolSize is the number of recyclable identity slots.
const DefaultPoolSize = 100

// DefaultFallbackRange bounds the random numbers handed out once the pool is empty.
const DefaultFallbackRange = 1000

// Allocator hands out the lowest free identity slot in [1..size].
// When the pool is empty it falls back to a random number above the pool
// that no live connection holds. Fallback numbers are never recycled.
type Allocator struct {
	mu       sync.Mutex
	size     int
	free     []int // sorted ascending
	fallback map[int]struct{}
	span     int
	rnd      *rand.Rand
}

// NewAllocator builds an allocator with slots 1..size and a fallback span of
// random numbers in (size, size+span].
func NewAllocator(size, span int) *Allocator {
	if size <= 0 {
		size = DefaultPoolSize
	}
	if span <= 0 {
		span = DefaultFallbackRange
	}
	free := make([]int, size)
	for i := range size {
		free[i] = i + 1
	}
	return &Allocator{
		size:     size,
		free:     free,
		fallback: make(map[int]struct{}),
		span:     span,
		rnd:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// Allocate removes and returns the lowest free slot. It never fails.
func (a *Allocator) Allocate() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.free) > 0 {
		slot := a.free[0]
		a.free = a.free[1:]
		return slot
	}
	return a.fallbackLocked()
}

func (a *Allocator) fallbackLocked() int {
	// Random probes first, then a linear scan past the span so a crowded
	// fallback range still yields a unique number.
	for range 8 {
		n := a.size + 1 + a.rnd.IntN(a.span)
		if _, taken := a.fallback[n]; !taken {
			a.fallback[n] = struct{}{}
			return n
		}
	}
	for n := a.size + 1; ; n++ {
		if _, taken := a.fallback[n]; !taken {
			a.fallback[n] = struct{}{}
			return n
		}
	}
}

// Release returns a pool slot, keeping the pool sorted. Fallback numbers are discarded.
func (a *Allocator) Release(slot int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.inPool(slot) {
		delete(a.fallback, slot)
		return
	}
	i, found := slices.BinarySearch(a.free, slot)
	if found {
		return
	}
	a.free = slices.Insert(a.free, i, slot)
}

// InPool reports whether slot belongs to the bounded pool.
func (a *Allocator) InPool(slot int) bool {
	return a.inPool(slot)
}

func (a *Allocator) inPool(slot int) bool {
	return slot >= 1 && slot <= a.size
}

// Available returns how many pool slots are free.
func (a *Allocator) Available() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.free)
}

// DisplayName derives the public name for a slot.
func DisplayName(slot int) string {
	return fmt.Sprintf("User%d", slot)
}
