package reportql

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	key string
}

func (s *stubProvider) Key() string                       { return s.key }
func (s *stubProvider) Label() string                      { return s.key }
func (s *stubProvider) Description() string                { return "" }
func (s *stubProvider) Capabilities() DatasetCapabilities   { return DatasetCapabilities{} }
func (s *stubProvider) GetColumns(ctx context.Context) ([]ColumnMeta, error) {
	return nil, nil
}
func (s *stubProvider) Query(ctx context.Context, selectedColumns []string, filter *FilterGroup, sort []SortSpec, limit, offset int, rc *RequestContext) (*TabularResult, error) {
	return &TabularResult{Columns: selectedColumns}, nil
}
func (s *stubProvider) Aggregate(ctx context.Context, groupByRows, groupByCols []string, values []ValueSpec, filter *FilterGroup, sort []SortSpec, limit, offset int, rc *RequestContext) (*AggregateResult, error) {
	return &AggregateResult{}, nil
}

func TestRegistry_EagerGetAndUnknown(t *testing.T) {
	r := NewRegistry()
	r.Add(&stubProvider{key: "sales"})

	p, err := r.Get("sales")
	require.NoError(t, err)
	assert.Equal(t, "sales", p.Key())

	_, err = r.Get("missing")
	require.Error(t, err)
	var rerr *ReportError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, ErrorTypeDatasetNotFound, rerr.Type)
}

func TestRegistry_LazyMaterializesOnce(t *testing.T) {
	r := NewRegistry()
	calls := 0
	r.AddLazy("orders", func() (Provider, error) {
		calls++
		return &stubProvider{key: "orders"}, nil
	})

	p1, err := r.Get("orders")
	require.NoError(t, err)
	p2, err := r.Get("orders")
	require.NoError(t, err)

	assert.Same(t, p1, p2)
	assert.Equal(t, 1, calls)
}

func TestRegistry_ListKeysAndAllProviders(t *testing.T) {
	r := NewRegistry()
	r.Add(&stubProvider{key: "b"})
	r.AddLazy("a", func() (Provider, error) { return &stubProvider{key: "a"}, nil })

	assert.Equal(t, []string{"a", "b"}, r.ListKeys())

	all, err := r.AllProviders()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRegistry_Clear(t *testing.T) {
	r := NewRegistry()
	r.Add(&stubProvider{key: "a"})
	r.Clear()
	assert.Empty(t, r.ListKeys())
}

func TestRegistry_OverwriteReplaces(t *testing.T) {
	r := NewRegistry()
	first := &stubProvider{key: "a"}
	second := &stubProvider{key: "a"}
	r.Add(first)
	r.Add(second)

	p, err := r.Get("a")
	require.NoError(t, err)
	assert.Same(t, second, p)
}
