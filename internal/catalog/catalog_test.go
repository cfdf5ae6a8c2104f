package catalog

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamID_JSON(t *testing.T) {
	tests := []struct {
		id   StreamID
		want string
	}{
		{"999", `999`},
		{"0042", `"0042"`},
		{"+42", `"+42"`},
		{"-7", `"-7"`},
		{"2168982-8h534X8441YD7B1", `"2168982-8h534X8441YD7B1"`},
		{"", `""`},
	}
	for _, tt := range tests {
		b, err := json.Marshal(tt.id)
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(b))

		var back StreamID
		require.NoError(t, json.Unmarshal(b, &back))
		assert.Equal(t, tt.id, back)
	}

	var s StreamID
	require.NoError(t, json.Unmarshal([]byte(`null`), &s))
	assert.Equal(t, StreamID(""), s)
}

func TestStreamID_IsNumeric(t *testing.T) {
	assert.True(t, StreamID("999").IsNumeric())
	assert.True(t, StreamID("0").IsNumeric())
	assert.False(t, StreamID("+42").IsNumeric())
	assert.False(t, StreamID("-7").IsNumeric())
	assert.False(t, StreamID("0042").IsNumeric())
	assert.False(t, StreamID("99999999999999999999").IsNumeric())
	assert.False(t, StreamID("").IsNumeric())
}

func TestParseEpisodeLabel(t *testing.T) {
	n, ok := ParseEpisodeLabel("E07")
	assert.True(t, ok)
	assert.Equal(t, 7, n)

	n, ok = ParseEpisodeLabel("12")
	assert.True(t, ok)
	assert.Equal(t, 12, n)

	_, ok = ParseEpisodeLabel("E00")
	assert.False(t, ok)
	_, ok = ParseEpisodeLabel("")
	assert.False(t, ok)

	assert.Equal(t, "E03", FormatEpisodeLabel(3))
	assert.Equal(t, "E120", FormatEpisodeLabel(120))
}

func TestCatalog_Verify(t *testing.T) {
	good := &Catalog{Series: []*Series{{
		Name: "A",
		Episodes: []Episode{
			{CUID: 1, Index: 1},
			{CUID: 2, Index: 2},
		},
	}}}
	assert.NoError(t, good.Verify())

	dup := &Catalog{
		Series: []*Series{
			{Name: "A", Episodes: []Episode{{CUID: 1, Index: 1}}},
			{Name: "B", Episodes: []Episode{{CUID: 1, Index: 1}}},
		},
		Movies: []*Movie{{CUID: 5}, {CUID: 5}},
	}
	err := dup.Verify()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateCUID))

	gap := &Catalog{Series: []*Series{{
		Name:     "A",
		Episodes: []Episode{{CUID: 1, Index: 1}, {CUID: 2, Index: 3}},
	}}}
	assert.ErrorIs(t, gap.Verify(), ErrNumbering)
}
