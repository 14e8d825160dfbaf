package reportql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cols(names ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}

func TestCompile_EmptyGroupIsTrue(t *testing.T) {
	sql, args, err := Compile(nil, NumberedDialect{}, cols("region"))
	require.NoError(t, err)
	assert.Equal(t, "TRUE", sql)
	assert.Empty(t, args)
}

func TestCompile_NegatedEmptyGroupIsFalse(t *testing.T) {
	sql, args, err := Compile(&FilterGroup{Negate: true}, NumberedDialect{}, cols("region"))
	require.NoError(t, err)
	assert.Equal(t, "FALSE", sql)
	assert.Empty(t, args)
}

func TestCompile_SimpleCondition_NumberedDialect(t *testing.T) {
	g := &FilterGroup{
		Combinator: CombinatorAnd,
		Conditions: []FilterCondition{{Column: "region", Operator: OpEQ, Value: "N"}},
	}
	sql, args, err := Compile(g, NumberedDialect{}, cols("region"))
	require.NoError(t, err)
	assert.Equal(t, "region = $1", sql)
	assert.Equal(t, []any{"N"}, args)
}

func TestCompile_SimpleCondition_PositionalDialect(t *testing.T) {
	g := &FilterGroup{
		Combinator: CombinatorAnd,
		Conditions: []FilterCondition{{Column: "region", Operator: OpEQ, Value: "N"}},
	}
	sql, args, err := Compile(g, PositionalDialect{}, cols("region"))
	require.NoError(t, err)
	assert.Equal(t, "region = ?", sql)
	assert.Equal(t, []any{"N"}, args)
}

func TestCompile_BetweenAndIn(t *testing.T) {
	g := &FilterGroup{
		Combinator: CombinatorAnd,
		Conditions: []FilterCondition{
			{Column: "amount", Operator: OpBetween, Value: []any{100.0, 200.0}},
			{Column: "region", Operator: OpIn, Value: []any{"N", "S"}},
		},
	}
	sql, args, err := Compile(g, NumberedDialect{}, cols("amount", "region"))
	require.NoError(t, err)
	assert.Equal(t, "(amount BETWEEN $1 AND $2 AND region IN ($3, $4))", sql)
	assert.Equal(t, []any{100.0, 200.0, "N", "S"}, args)
}

func TestCompile_ContainsEscapesLikeMetacharacters(t *testing.T) {
	g := &FilterGroup{Conditions: []FilterCondition{
		{Column: "region", Operator: OpContains, Value: "50%_off"},
	}}
	sql, args, err := Compile(g, NumberedDialect{}, cols("region"))
	require.NoError(t, err)
	assert.Equal(t, "region LIKE $1 ESCAPE '\\'", sql)
	assert.Equal(t, []any{`%50\%\_off%`}, args)
}

func TestCompile_NullTests(t *testing.T) {
	g := &FilterGroup{
		Combinator: CombinatorOr,
		Conditions: []FilterCondition{
			{Column: "amount", Operator: OpIsNull},
			{Column: "amount", Operator: OpIsNotNull},
		},
	}
	sql, args, err := Compile(g, NumberedDialect{}, cols("amount"))
	require.NoError(t, err)
	assert.Equal(t, "(amount IS NULL OR amount IS NOT NULL)", sql)
	assert.Empty(t, args)
}

func TestCompile_UnknownColumnFails(t *testing.T) {
	g := &FilterGroup{Conditions: []FilterCondition{{Column: "nope", Operator: OpEQ, Value: 1}}}
	_, _, err := Compile(g, NumberedDialect{}, cols("region"))
	require.Error(t, err)
	var rerr *ReportError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, ErrorTypeFilterValidation, rerr.Type)
}

func TestCompile_EmptyInCompilesToFalse(t *testing.T) {
	g := &FilterGroup{Conditions: []FilterCondition{{Column: "region", Operator: OpIn, Value: []any{}}}}
	sql, _, err := Compile(g, NumberedDialect{}, cols("region"))
	require.NoError(t, err)
	assert.Equal(t, "FALSE", sql)
}
