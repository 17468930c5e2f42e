package cqrs

import "strings"

// Validation is one independent rule over a (command, aggregate) pair.
// It returns the fully formed rejection and true when it objects.
// Rules must not mutate either argument.
type Validation[C any, A any, R any] func(command C, aggregate A) (R, bool)

// CompleteValidation runs every rule, in order, and folds all objections
// into a single rejection with merge. It does not stop at the first
// objection so that independent violations are all reported.
type CompleteValidation[C any, A any, R any] struct {
	rules []Validation[C, A, R]
	merge func(left, right R) R
}

// NewCompleteValidation creates a validation pipeline
func NewCompleteValidation[C any, A any, R any](merge func(left, right R) R, rules ...Validation[C, A, R]) CompleteValidation[C, A, R] {
	return CompleteValidation[C, A, R]{
		rules: append([]Validation[C, A, R](nil), rules...),
		merge: merge,
	}
}

// Validate returns the folded rejection and true if any rule objected
func (v CompleteValidation[C, A, R]) Validate(command C, aggregate A) (R, bool) {
	var result R
	found := false
	for _, rule := range v.rules {
		rejection, ok := rule(command, aggregate)
		if !ok {
			continue
		}
		if !found {
			result = rejection
			found = true
			continue
		}
		result = v.merge(result, rejection)
	}
	return result, found
}

// IfNotEqualsThenUse returns left when both values are equal and fallback otherwise
func IfNotEqualsThenUse[T comparable](left, right, fallback T) T {
	if left == right {
		return left
	}
	return fallback
}

// AppendIfNotBlank joins left and right with sep, dropping blank parts
func AppendIfNotBlank(left, right, sep string) string {
	switch {
	case strings.TrimSpace(right) == "":
		return left
	case strings.TrimSpace(left) == "":
		return right
	default:
		return left + sep + right
	}
}
