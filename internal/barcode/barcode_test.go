package barcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assettrack/backend/internal/apperr"
)

func TestNormalizeStripsWhitespace(t *testing.T) {
	got, err := Normalize(" 40 0638\t1333931\n")
	require.NoError(t, err)
	assert.Equal(t, "4006381333931", got)
}

func TestNormalizeEmptyIsValidationError(t *testing.T) {
	_, err := Normalize("   \t\n")
	require.Error(t, err)
	assert.Equal(t, "barcode_value_required", apperr.CodeOf(err))
}

func TestCheckDigit(t *testing.T) {
	cases := map[string]string{
		"400638133393": "1",
		"978030640615": "7",
		"000000000000": "0",
	}
	for payload, want := range cases {
		got, err := CheckDigit(payload)
		require.NoError(t, err)
		assert.Equal(t, want, got, "payload %s", payload)
	}
}

func TestCheckDigitRejectsBadPayload(t *testing.T) {
	for _, payload := range []string{"", "12345", "12345678901a", "1234567890123"} {
		_, err := CheckDigit(payload)
		assert.Error(t, err, "payload %q", payload)
	}
}

func TestCanonicalAppendsCheckDigit(t *testing.T) {
	got, err := Canonical("400638133393")
	require.NoError(t, err)
	assert.Equal(t, "4006381333931", got)

	// Already 13 digits: unchanged.
	got, err = Canonical("4006381333931")
	require.NoError(t, err)
	assert.Equal(t, "4006381333931", got)

	// Non-numeric values pass through untouched.
	got, err = Canonical("INV-00042")
	require.NoError(t, err)
	assert.Equal(t, "INV-00042", got)
}

func TestPayload11(t *testing.T) {
	assert.Equal(t, "00638133393", Payload11("4006381333931"))
	assert.Equal(t, "40063813339", Payload11("400638133393"))
	assert.Equal(t, "40063813339", Payload11("40063813339"))
	assert.Equal(t, "", Payload11("1234"))
	assert.Equal(t, "", Payload11("INV-00042"))
}

func TestMatchesAcrossScannerVariants(t *testing.T) {
	stored := "4006381333931"
	assert.True(t, Matches("4006381333931", stored))
	// 12-digit scanner output drops the check digit but keeps the leading
	// country digit, so its first 11 digits line up with stored[1:12] only
	// when they describe the same article.
	assert.True(t, Matches("0063813339312", "0063813339312"))
	assert.True(t, Matches("00638133393", stored))
	assert.False(t, Matches("00638133394", stored))
	assert.False(t, Matches("INV-1", stored))
}

func TestMatchConditionRendersFallback(t *testing.T) {
	cond, args := MatchCondition("b.value", "4006381333931", 2)
	assert.Equal(t, "(b.value = $2 OR (length(b.value) = 13 AND substr(b.value, 2, 11) = $3))", cond)
	require.Len(t, args, 2)
	assert.Equal(t, "4006381333931", args[0])
	assert.Equal(t, "00638133393", args[1])

	// Non-numeric values only get the equality arm.
	cond, args = MatchCondition("value", "INV-00042", 1)
	assert.Equal(t, "value = $1", cond)
	require.Len(t, args, 1)
}
