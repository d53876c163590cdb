package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	appErrors "github.com/noah-isme/academia-api/pkg/errors"
)

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"(74) 99999-8888":  "5574999998888",
		"74 3621-0000":     "557436210000",
		"5574999998888":    "5574999998888",
		"+55 74 3621-0000": "557436210000",
		"":                 "",
		"abc":              "",
		"12345":            "12345",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizePhone(in), in)
	}
}

func localPhone() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		first := rapid.SampledFrom([]string{"1", "2", "3", "4", "6", "7", "8", "9"}).Draw(t, "first")
		rest := rapid.StringMatching(`[0-9]{9,10}`).Draw(t, "rest")
		return first + rest
	})
}

func TestNormalizePhonePrependsCountryCodeOnce(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		local := localPhone().Draw(t, "local")
		got := NormalizePhone(local)
		if got != "55"+local {
			t.Fatalf("NormalizePhone(%q) = %q", local, got)
		}
		if again := NormalizePhone(got); again != got {
			t.Fatalf("second pass changed %q to %q", got, again)
		}
	})
}

func TestNormalizePhoneKeepsPrefixedNumbers(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		prefixed := "55" + rapid.StringMatching(`[0-9]{0,12}`).Draw(t, "rest")
		if got := NormalizePhone(prefixed); got != prefixed {
			t.Fatalf("NormalizePhone(%q) = %q", prefixed, got)
		}
	})
}

func TestValidatePhoneLength(t *testing.T) {
	assert.NoError(t, ValidatePhoneLength("(74) 99999-8888"))
	assert.NoError(t, ValidatePhoneLength("7436210000"))

	err := ValidatePhoneLength("99999-888")
	var fe appErrors.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "phone", fe.Field)
	assert.Contains(t, fe.Message, "invalid phone length")

	assert.Error(t, ValidatePhoneLength("5574999998888"))
}

func TestNormalizeDocumentIsIdempotent(t *testing.T) {
	assert.Equal(t, "12345678901", NormalizeDocument("123.456.789-01"))
	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.String().Draw(t, "raw")
		once := NormalizeDocument(raw)
		if NormalizeDocument(once) != once {
			t.Fatalf("not idempotent for %q", raw)
		}
		if strings.Trim(once, "0123456789") != "" {
			t.Fatalf("non digit left in %q", once)
		}
	})
}

func TestValidateNumericField(t *testing.T) {
	assert.NoError(t, ValidateNumericField("12.345.678-9", "id_number"))
	assert.NoError(t, ValidateNumericField("(12) 34 56", "id_number"))
	assert.NoError(t, ValidateNumericField("", "id_number"))

	err := ValidateNumericField("12A45", "id_number")
	var fe appErrors.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "id_number", fe.Field)
	assert.Equal(t, "must contain only digits", fe.Message)

	assert.Error(t, ValidateNumericField("--", "document"))
}

func TestValidateDateRange(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, ValidateDateRange(&jan, &feb))
	assert.NoError(t, ValidateDateRange(&jan, &jan))
	assert.NoError(t, ValidateDateRange(nil, &jan))
	assert.NoError(t, ValidateDateRange(&feb, nil))

	err := ValidateDateRange(&feb, &jan)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start date after end date")
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("due_date", " 2024-03-10 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseDate("due_date", "10/03/2024")
	var fe appErrors.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "due_date", fe.Field)

	none, err := ParseOptionalDate("from", "")
	require.NoError(t, err)
	assert.Nil(t, none)
}
