package reportql

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FilterCondition is a single leaf predicate against one column.
// Value is operator-dependent: a scalar for comparisons, a two-element
// slice for BETWEEN, a slice for IN, unused for the null tests. JSON
// unmarshalling already gives us the tagged variant {nil, bool,
// float64, string, []any} the design notes ask for — no separate
// wrapper type is needed on top of encoding/json's own decoding.
type FilterCondition struct {
	Column   string         `json:"column"`
	Operator FilterOperator `json:"operator"`
	Value    any            `json:"value,omitempty"`
	Negate   bool           `json:"-"`
}

// filterConditionWire mirrors FilterCondition for JSON purposes,
// accepting "not" as an alias for Negate on the way in and emitting it
// as "not" on the way out (§6 FilterGroup JSON).
type filterConditionWire struct {
	Column   string         `json:"column"`
	Operator FilterOperator `json:"operator"`
	Value    any            `json:"value,omitempty"`
	Not      bool           `json:"not,omitempty"`
}

func (c *FilterCondition) UnmarshalJSON(data []byte) error {
	var w filterConditionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	c.Column = w.Column
	c.Operator = w.Operator
	c.Value = w.Value
	c.Negate = w.Not
	return nil
}

func (c FilterCondition) MarshalJSON() ([]byte, error) {
	return json.Marshal(filterConditionWire{
		Column:   c.Column,
		Operator: c.Operator,
		Value:    c.Value,
		Not:      c.Negate,
	})
}

// FilterGroup is a recursive boolean tree of conditions and nested
// groups. An empty group (no conditions, no groups) evaluates to true.
type FilterGroup struct {
	Combinator FilterCombinator  `json:"combinator"`
	Negate     bool              `json:"-"`
	Conditions []FilterCondition `json:"conditions,omitempty"`
	Groups     []FilterGroup     `json:"groups,omitempty"`
}

type filterGroupWire struct {
	Combinator FilterCombinator  `json:"combinator"`
	Not        bool              `json:"not,omitempty"`
	Conditions []FilterCondition `json:"conditions,omitempty"`
	Groups     []FilterGroup     `json:"groups,omitempty"`
}

func (g *FilterGroup) UnmarshalJSON(data []byte) error {
	var w filterGroupWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	g.Combinator = w.Combinator
	g.Negate = w.Not
	g.Conditions = w.Conditions
	g.Groups = w.Groups
	return nil
}

func (g FilterGroup) MarshalJSON() ([]byte, error) {
	return json.Marshal(filterGroupWire{
		Combinator: g.Combinator,
		Not:        g.Negate,
		Conditions: g.Conditions,
		Groups:     g.Groups,
	})
}

// Evaluate runs the row evaluator: true iff row satisfies the group,
// per the per-operator semantics documented on FilterCondition.Evaluate.
func (g *FilterGroup) Evaluate(row map[string]any) bool {
	if g == nil {
		return true
	}
	var result bool
	if len(g.Conditions) == 0 && len(g.Groups) == 0 {
		result = true
	} else {
		switch g.Combinator {
		case CombinatorOr:
			result = false
			for _, c := range g.Conditions {
				if c.Evaluate(row) {
					result = true
					break
				}
			}
			if !result {
				for _, sub := range g.Groups {
					if sub.Evaluate(row) {
						result = true
						break
					}
				}
			}
		default: // CombinatorAnd, and the zero value
			result = true
			for _, c := range g.Conditions {
				if !c.Evaluate(row) {
					result = false
					break
				}
			}
			if result {
				for _, sub := range g.Groups {
					if !sub.Evaluate(row) {
						result = false
						break
					}
				}
			}
		}
	}
	if g.Negate {
		result = !result
	}
	return result
}

// Evaluate runs one predicate against a row. Absent columns are
// treated as null throughout.
func (c *FilterCondition) Evaluate(row map[string]any) bool {
	cell, present := row[c.Column]
	if !present {
		cell = nil
	}
	var result bool
	switch c.Operator {
	case OpEQ:
		result = structuralEqual(cell, c.Value)
	case OpNEQ:
		result = !structuralEqual(cell, c.Value)
	case OpGT:
		result = safeCompare(cell, c.Value) > 0
	case OpLT:
		result = safeCompare(cell, c.Value) < 0
	case OpGTE:
		result = safeCompareOK(cell, c.Value) && safeCompare(cell, c.Value) >= 0
	case OpLTE:
		result = safeCompareOK(cell, c.Value) && safeCompare(cell, c.Value) <= 0
	case OpContains:
		result = stringPredicate(cell, c.Value, strings.Contains)
	case OpStartsWith:
		result = stringPredicate(cell, c.Value, strings.HasPrefix)
	case OpEndsWith:
		result = stringPredicate(cell, c.Value, strings.HasSuffix)
	case OpIsNull:
		result = cell == nil
	case OpIsNotNull:
		result = cell != nil
	case OpBetween:
		result = evaluateBetween(cell, c.Value)
	case OpIn:
		result = evaluateIn(cell, c.Value)
	default:
		result = false
	}
	if c.Negate {
		result = !result
	}
	return result
}

// structuralEqual implements EQ/NEQ. Absent/null columns only equal an
// explicit nil bound value.
func structuralEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	af, aIsNum := toFloat(a)
	bf, bIsNum := toFloat(b)
	if aIsNum && bIsNum {
		return af == bf
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// safeCompareOK reports whether both sides are non-null and
// comparable; GT/LT/GTE/LTE must be false (never panic) when this is
// false.
func safeCompareOK(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	_, aIsNum := toFloat(a)
	_, bIsNum := toFloat(b)
	if aIsNum && bIsNum {
		return true
	}
	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		_ = as
		_ = bs
		return true
	}
	return false
}

// safeCompare returns <0, 0, >0 comparing a to b. Caller must have
// already checked safeCompareOK (GT/LT call sites), or accepts the
// zero-value "equal" result for GT/LT which is harmless since those
// operators use strict inequality against an already-guarded LTE/GTE.
func safeCompare(a, b any) int {
	if !safeCompareOK(a, b) {
		return 0
	}
	if af, aOK := toFloat(a); aOK {
		bf, _ := toFloat(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	as, _ := a.(string)
	bs, _ := b.(string)
	return strings.Compare(as, bs)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}

func stringPredicate(cell, bound any, pred func(s, substr string) bool) bool {
	if cell == nil || bound == nil {
		return false
	}
	cs, ok1 := asString(cell)
	bs, ok2 := asString(bound)
	if !ok1 || !ok2 {
		return false
	}
	return pred(cs, bs)
}

func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	default:
		return fmt.Sprint(v), true
	}
}

// evaluateBetween requires value to be a 2-element ordered collection
// [lo, hi]; malformed shapes are false, matching IN's malformed-value
// behaviour.
func evaluateBetween(cell, bound any) bool {
	if cell == nil {
		return false
	}
	pair, ok := asSlice(bound)
	if !ok || len(pair) != 2 {
		return false
	}
	lo, hi := pair[0], pair[1]
	if !safeCompareOK(cell, lo) || !safeCompareOK(cell, hi) {
		return false
	}
	return safeCompare(cell, lo) >= 0 && safeCompare(cell, hi) <= 0
}

func evaluateIn(cell, bound any) bool {
	items, ok := asSlice(bound)
	if !ok {
		return false
	}
	for _, item := range items {
		if structuralEqual(cell, item) {
			return true
		}
	}
	return false
}

func asSlice(v any) ([]any, bool) {
	items, ok := v.([]any)
	return items, ok
}
