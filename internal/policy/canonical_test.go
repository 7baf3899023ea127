package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_Shape(t *testing.T) {
	rs := &RuleSet{
		Name:       "n",
		SourceLogs: 2,
		Rules: []Rule{{
			ID:          "policy_0001",
			Antecedent:  map[string]string{"role": "<admin>"},
			Consequent:  "read",
			Support:     0.5,
			Confidence:  1,
			Lift:        1.333333,
			Description: "d",
		}},
	}

	data, err := MarshalCanonical(rs)
	require.NoError(t, err)

	want := `{"name":"n","policies":[{"antecedent":{"role":"<admin>"},"confidence":1000000,` +
		`"consequent":"read","description":"d","lift":1333333,"policy_id":"policy_0001","support":500000}],"source_logs":2}`
	assert.Equal(t, want, string(data))
}

func TestMarshalCanonical_NFC(t *testing.T) {
	decomposed := &RuleSet{Name: "cafe\u0301"}
	composed := &RuleSet{Name: "caf\u00e9"}

	a, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	b, err := MarshalCanonical(composed)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestMarshalCanonical_LineSeparators(t *testing.T) {
	data, err := MarshalCanonical(&RuleSet{Name: "a\u2028b"})
	require.NoError(t, err)
	assert.Contains(t, string(data), "a\u2028b")

	data, err = MarshalCanonical(&RuleSet{Name: `a\u2028b`})
	require.NoError(t, err)
	assert.Contains(t, string(data), `a\\u2028b`)
}

func TestMarshalCanonical_RejectsFloats(t *testing.T) {
	_, err := marshalCanonical(map[string]any{"x": 0.5})
	assert.Error(t, err)
	_, err = marshalCanonical(nil)
	assert.Error(t, err)
}

func TestCompareUTF16(t *testing.T) {
	// U+1F600 encodes as a surrogate pair starting at 0xD83D, which sorts
	// before U+FF61 in UTF-16 but after it in UTF-8.
	assert.Equal(t, -1, compareUTF16("\U0001F600", "\uFF61"))
	assert.Equal(t, 0, compareUTF16("a", "a"))
	assert.Equal(t, -1, compareUTF16("a", "ab"))
}

func TestDigest(t *testing.T) {
	a := sampleSet()
	b := sampleSet()
	b.GeneratedAt = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	da, err := Digest(a)
	require.NoError(t, err)
	db, err := Digest(b)
	require.NoError(t, err)
	assert.Equal(t, da, db, "generation time must not affect the digest")
	assert.Len(t, da, 64)

	b.Rules[0].Confidence = 0.81
	dc, err := Digest(b)
	require.NoError(t, err)
	assert.NotEqual(t, da, dc)
}

func TestToMicro(t *testing.T) {
	assert.Equal(t, int64(400000), ToMicro(0.4))
	assert.Equal(t, int64(1666667), ToMicro(1.6666666666))
	assert.Equal(t, int64(0), ToMicro(0))
}
