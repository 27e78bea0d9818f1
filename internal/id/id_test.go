package id

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatBillID(t *testing.T) {
	got := FormatBillID("split", time.Unix(1700000000, 0))
	require.True(t, strings.HasPrefix(got, "split_1700000000_"), got)
	assert.Len(t, got, len("split_1700000000_")+6)

	token, ok := TimestampToken(got, DefaultPrefixes)
	require.True(t, ok)
	assert.Equal(t, "1700000000", token)
}

func TestTimestampToken(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"split_1700000000", "1700000000", true},
		{"split_1700000000_abc", "1700000000", true},
		{"bill-1700000000123", "1700000000123", true},
		{"SPLIT_1700000000", "1700000000", true},
		{"receipt_1700000000_x_y", "1700000000", true},
		{"unknown_1700000000", "", false},
		{"split_17000", "", false},
		{"split_17000000001234", "", false},
		{"split_170000000a", "", false},
		{"split", "", false},
		{"1700000000_abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := TimestampToken(tt.input, DefaultPrefixes)
		assert.Equal(t, tt.wantOK, ok, "TimestampToken(%q)", tt.input)
		assert.Equal(t, tt.want, got, "TimestampToken(%q)", tt.input)
	}
}

func TestIsTimestampToken(t *testing.T) {
	assert.True(t, IsTimestampToken("1700000000"))
	assert.True(t, IsTimestampToken("1700000000000"))
	assert.False(t, IsTimestampToken("170000000"))
	assert.False(t, IsTimestampToken("abcdefghij"))
}

func TestNewIDs(t *testing.T) {
	p := NewParticipantID()
	_, err := uuid.Parse(p)
	require.NoError(t, err)
	assert.NotEqual(t, p, NewParticipantID())

	_, err = uuid.Parse(NewItemID())
	require.NoError(t, err)
}
