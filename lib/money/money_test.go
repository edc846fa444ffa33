package money

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestFormatIn(t *testing.T) {
	cases := []struct {
		raw      int64
		tag      language.Tag
		contains string
	}{
		{raw: 599, tag: language.AmericanEnglish, contains: "5.99"},
		{raw: 5, tag: language.AmericanEnglish, contains: "0.05"},
		{raw: 50, tag: language.AmericanEnglish, contains: "0.50"},
		{raw: 123456, tag: language.AmericanEnglish, contains: "1,234.56"},
		{raw: 599, tag: language.BrazilianPortuguese, contains: "5,99"},
		{raw: 599, tag: language.MustParse("de-DE"), contains: "5,99"},
	}

	for _, test := range cases {
		formatted := FormatIn(test.raw, test.tag)
		require.Contains(t, formatted, test.contains, "%d in %s", test.raw, test.tag)
	}
}

func TestFormatInSymbol(t *testing.T) {
	require.Contains(t, FormatIn(599, language.AmericanEnglish), "$")
	require.Contains(t, FormatIn(599, language.MustParse("de-DE")), "€")
	require.Equal(t, "-", FormatIn(-599, language.AmericanEnglish)[:1])
}

func TestParseLocale(t *testing.T) {
	tag, ok := parseLocale("pt_BR.UTF-8")
	require.True(t, ok)
	require.Equal(t, language.BrazilianPortuguese, tag)

	tag, ok = parseLocale("de_DE@euro")
	require.True(t, ok)
	require.Equal(t, language.MustParse("de-DE"), tag)

	for _, value := range []string{"", "C", "POSIX", "C.UTF-8"} {
		_, ok = parseLocale(value)
		require.False(t, ok, value)
	}
}

func TestProcessLocale(t *testing.T) {
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MONETARY", "pt_BR.UTF-8")
	t.Setenv("LANG", "en_US.UTF-8")
	require.Equal(t, language.BrazilianPortuguese, ProcessLocale())

	t.Setenv("LC_MONETARY", "C")
	require.Equal(t, language.AmericanEnglish, ProcessLocale())

	t.Setenv("LANG", "")
	require.Equal(t, fallbackLocale, ProcessLocale())
}

func TestFormatString(t *testing.T) {
	t.Setenv("LC_ALL", "en_US.UTF-8")

	formatted, err := FormatString("599")
	require.NoError(t, err)
	require.Contains(t, formatted, "5.99")

	formatted, err = FormatString("5")
	require.NoError(t, err)
	require.Contains(t, formatted, "0.05")

	_, err = FormatString("five")
	require.Error(t, err)
}

func TestFormatInLargeAmounts(t *testing.T) {
	require.Contains(t, FormatIn(9007199254740993, language.AmericanEnglish), "90,071,992,547,409.93")
	require.Contains(t, FormatIn(-9007199254740993, language.AmericanEnglish), "90,071,992,547,409.93")
	require.Contains(t, FormatIn(100, language.AmericanEnglish), "1.00")
}

func TestFormatInWithoutMinorUnits(t *testing.T) {
	formatted := FormatIn(599, language.MustParse("ja-JP"))
	require.True(t, strings.HasSuffix(formatted, "6"), formatted)
	require.NotContains(t, formatted, "5")
}

func TestSplitHundredths(t *testing.T) {
	cases := []struct {
		hundredths      uint64
		scale           int
		whole, fraction uint64
	}{
		{hundredths: 599, scale: 2, whole: 5, fraction: 99},
		{hundredths: 5, scale: 2, whole: 0, fraction: 5},
		{hundredths: 599, scale: 0, whole: 6, fraction: 0},
		{hundredths: 549, scale: 0, whole: 5, fraction: 0},
		{hundredths: 599, scale: 3, whole: 5, fraction: 990},
		{hundredths: 596, scale: 1, whole: 6, fraction: 0},
		{hundredths: 594, scale: 1, whole: 5, fraction: 9},
	}
	for _, test := range cases {
		whole, fraction := splitHundredths(test.hundredths, test.scale)
		require.Equal(t, test.whole, whole, "%d at scale %d", test.hundredths, test.scale)
		require.Equal(t, test.fraction, fraction, "%d at scale %d", test.hundredths, test.scale)
	}
}
