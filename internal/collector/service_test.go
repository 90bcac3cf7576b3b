package collector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_Create(t *testing.T) {
	svc := NewService(NewInMemoryRepository(), nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, &Collector{
		Name:  "orders-db",
		Query: "SELECT count(*) AS failed FROM orders WHERE region = $1 AND status = 'failed'",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	_, err = svc.Create(ctx, &Collector{Name: "no-query"})
	assert.Error(t, err)
	_, err = svc.Create(ctx, &Collector{Query: "SELECT 1"})
	assert.Error(t, err)
}

func TestService_ItemNames(t *testing.T) {
	svc := NewService(NewInMemoryRepository(), nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, &Collector{Name: "orders-db", Query: "SELECT 1"})
	require.NoError(t, err)

	require.NoError(t, svc.SetItemNames(ctx, created.ID, []string{"eu-west", "us-east"}))
	names, err := svc.ItemNames(ctx, created.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"eu-west", "us-east"}, names)

	// Replacement, not append.
	require.NoError(t, svc.SetItemNames(ctx, created.ID, []string{"ap-south"}))
	names, err = svc.ItemNames(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"ap-south"}, names)

	_, err = svc.ItemNames(ctx, "col_missing")
	assert.ErrorIs(t, err, ErrCollectorNotFound)
}

func TestService_Collect(t *testing.T) {
	source := &StaticSource{Values: map[string]map[string]float64{}}
	svc := NewService(NewInMemoryRepository(), source)
	ctx := context.Background()

	created, err := svc.Create(ctx, &Collector{Name: "orders-db", Query: "SELECT 1"})
	require.NoError(t, err)
	source.Values[created.ID+"/eu-west"] = map[string]float64{"failed": 12, "total": 340}

	values, err := svc.Collect(ctx, created.ID, "eu-west")
	require.NoError(t, err)
	assert.Equal(t, 12.0, values["failed"])
	assert.Equal(t, 340.0, values["total"])

	_, err = svc.Collect(ctx, created.ID, "unknown-region")
	assert.ErrorIs(t, err, ErrItemNotFound)

	_, err = svc.Collect(ctx, "col_missing", "eu-west")
	assert.ErrorIs(t, err, ErrCollectorNotFound)
}

func TestService_Collect_NoSource(t *testing.T) {
	svc := NewService(NewInMemoryRepository(), nil)
	_, err := svc.Collect(context.Background(), "col_1", "eu-west")
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestAsFloat(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{float64(1.5), 1.5, true},
		{float32(2), 2, true},
		{int64(3), 3, true},
		{int32(4), 4, true},
		{int16(5), 5, true},
		{int(6), 6, true},
		{"7", 0, false},
		{nil, 0, false},
		{true, 0, false},
	}

	for _, tt := range tests {
		got, ok := asFloat(tt.in)
		assert.Equal(t, tt.ok, ok)
		if ok {
			assert.Equal(t, tt.want, got)
		}
	}
}
