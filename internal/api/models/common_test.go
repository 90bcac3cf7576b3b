package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPagedResponseMeta(t *testing.T) {
	tests := []struct {
		name            string
		page            int
		pageSize        int
		totalCount      int
		wantTotalPages  int
		wantHasNext     bool
		wantHasPrevious bool
	}{
		{"first of many", 1, 10, 25, 3, true, false},
		{"middle page", 2, 10, 25, 3, true, true},
		{"last page", 3, 10, 25, 3, false, true},
		{"single page", 1, 10, 5, 1, false, false},
		{"exact fit", 2, 10, 20, 2, false, true},
		{"empty result", 1, 10, 0, 0, false, false},
		{"page beyond range", 5, 10, 25, 3, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := NewPagedResponseMeta(tt.page, tt.pageSize, tt.totalCount)

			assert.Equal(t, tt.wantTotalPages, meta.TotalPages)
			assert.Equal(t, tt.wantHasNext, meta.HasNextPage)
			assert.Equal(t, tt.wantHasPrevious, meta.HasPreviousPage)
			assert.Equal(t, tt.totalCount, meta.TotalCount)

			// The flags are always derivable from page position.
			assert.Equal(t, meta.Page < meta.TotalPages, meta.HasNextPage)
			assert.Equal(t, meta.Page > 1, meta.HasPreviousPage)
		})
	}
}

func TestEnvelope(t *testing.T) {
	ok, err := json.Marshal(OK(map[string]string{"id": "ind_1"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"isSuccess":true,"data":{"id":"ind_1"}}`, string(ok))

	fail, err := json.Marshal(Fail("indicator not found"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"isSuccess":false,"errorMessage":"indicator not found"}`, string(fail))
}

func TestTimestamp_RoundTrip(t *testing.T) {
	at := Timestamp(time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC))

	b, err := json.Marshal(at)
	require.NoError(t, err)
	assert.Equal(t, `"2026-08-29T10:00:00Z"`, string(b))

	var parsed Timestamp
	require.NoError(t, json.Unmarshal(b, &parsed))
	assert.True(t, at.Time().Equal(parsed.Time()))

	var nullable Timestamp
	require.NoError(t, json.Unmarshal([]byte("null"), &nullable))
	assert.True(t, nullable.Time().IsZero())
}
