package query

import (
	fluxerrors "github.com/PranavKndpl/FluxDB/internal/errors"
	"github.com/PranavKndpl/FluxDB/internal/value"
)

// checkCondition evaluates a single field's constraint against the
// document's value at that field: a non-object constraint is an
// equality test, an object constraint is a conjunction of
// $gt/$lt/$gte/$lte/$ne operators. $gt/$lt/$gte/$lte only compare
// values of the same comparable kind (Number, Bool, or String); a
// cross-kind comparison is a type mismatch, and the constraint fails
// to match rather than falling back to value.Compare's total
// cross-type rank order, which exists for sorted-index ordering and
// would otherwise produce a spurious match or non-match depending on
// which side's type happens to rank higher.
func checkCondition(val, constraint value.Value) bool {
	if constraint.Kind() != value.KindObject {
		return value.Equal(val, constraint)
	}

	ops, _ := constraint.AsObject()
	match := true
	for op, crit := range ops {
		switch op {
		case "$gt":
			c, err := compareTyped(val, crit)
			if err != nil || c <= 0 {
				match = false
			}
		case "$lt":
			c, err := compareTyped(val, crit)
			if err != nil || c >= 0 {
				match = false
			}
		case "$gte":
			c, err := compareTyped(val, crit)
			if err != nil || c < 0 {
				match = false
			}
		case "$lte":
			c, err := compareTyped(val, crit)
			if err != nil || c > 0 {
				match = false
			}
		case "$ne":
			if value.Equal(val, crit) {
				match = false
			}
		}
	}
	return match
}

// compareTyped compares val against crit, but only when both share the
// same comparable kind. A cross-kind comparison returns
// ErrTypeMismatch instead of a definite ordering, so the caller can
// treat it as "does not match" rather than propagating it.
func compareTyped(val, crit value.Value) (int, error) {
	if !value.SameComparableKind(val, crit) {
		return 0, fluxerrors.ErrTypeMismatch
	}
	return value.Compare(val, crit), nil
}

// matches reports whether doc satisfies every field constraint in
// query. A field absent from doc never matches.
func matches(doc value.Document, query value.Document) bool {
	for key, constraint := range query {
		v, ok := doc[key]
		if !ok {
			return false
		}
		if !checkCondition(v, constraint) {
			return false
		}
	}
	return true
}
