package util

import "math/rand"

// Shuffle randomizes partition scan order so no partition starves.
func Shuffle(values []int) {
	rand.Shuffle(len(values), func(i, j int) {
		values[i], values[j] = values[j], values[i]
	})
}
