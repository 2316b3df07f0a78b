package game

import (
	"github.com/user/eoc-response-sim/internal/interfaces"
	"github.com/user/eoc-response-sim/internal/types"
)

// Subscriber is anything that can register state listeners
type Subscriber interface {
	Subscribe(listener interfaces.Listener) (unsubscribe func())
}

// SubscribeSelector notifies fn only when the value picked by selector changes
func SubscribeSelector[T comparable](store Subscriber, selector func(types.GameState) T, fn func(current, previous T)) func() {
	return store.Subscribe(func(current, previous types.GameState) {
		cur, prev := selector(current), selector(previous)
		if cur != prev {
			fn(cur, prev)
		}
	})
}

// SelectPhase picks the phase out of a snapshot
func SelectPhase(st types.GameState) types.GamePhase {
	return st.Phase
}

// SelectScore picks the score out of a snapshot
func SelectScore(st types.GameState) int {
	return st.Score
}

// SelectResources picks the resource pools out of a snapshot
func SelectResources(st types.GameState) types.Resources {
	return st.Resources
}
