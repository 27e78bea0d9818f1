package ledger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/pricesplit/internal/model"
)

func TestAllocationsRoundTrip(t *testing.T) {
	l, _ := newDinner(t)
	a, _ := l.AddParticipant(ParticipantInfo{DisplayName: "Alice", WalletRef: "0xa11ce"})
	l.AddParticipant(ParticipantInfo{DisplayName: "Bob, Jr."})
	require.NoError(t, l.SetParticipantStatus(a, model.StatusAccepted))

	var buf bytes.Buffer
	require.NoError(t, WriteAllocations(&buf, l.Participants()))
	assert.True(t, strings.HasPrefix(buf.String(), Header+"\n"))
	assert.Contains(t, buf.String(), `"Bob, Jr."`)

	got, err := ReadAllocations(&buf)
	require.NoError(t, err)
	want := l.Participants()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].DisplayName, got[i].DisplayName)
		assert.Equal(t, want[i].WalletRef, got[i].WalletRef)
		assert.Equal(t, want[i].Status, got[i].Status)
		assert.True(t, want[i].AmountOwed.Equal(got[i].AmountOwed))
	}
}

func TestReadAllocations_Empty(t *testing.T) {
	got, err := ReadAllocations(strings.NewReader(Header + "\n"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUnmarshalParticipant_Errors(t *testing.T) {
	_, err := UnmarshalParticipant([]string{"a"})
	assert.Error(t, err)

	_, err = UnmarshalParticipant([]string{"id", "A", "", "pending", "abc"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount_owed")

	_, err = UnmarshalParticipant([]string{"id", "A", "", "maybe", "1.00"})
	assert.Error(t, err)
}

func TestMarshalParticipant_FixedPrecision(t *testing.T) {
	row := MarshalParticipant(model.Participant{ID: "p", DisplayName: "A", Status: model.StatusPending, AmountOwed: dec("14.3")})
	assert.Equal(t, "14.30", row[colAmountOwed])
}
