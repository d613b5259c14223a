package statscollector

import "golang.org/x/exp/constraints"

type number interface {
	constraints.Integer | constraints.Float
}

func average[T number](values []T) T {
	if len(values) == 0 {
		return 0
	}
	var total T
	for _, v := range values {
		total += v
	}
	return total / T(len(values))
}

func peak[T number](values []T) T {
	var highest T
	for i, v := range values {
		if i == 0 || v > highest {
			highest = v
		}
	}
	return highest
}

func collect[S, T any](samples []S, get func(S) T) []T {
	values := make([]T, len(samples))
	for i, s := range samples {
		values[i] = get(s)
	}
	return values
}
