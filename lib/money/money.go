// Package money formats the raw integer prices used by the service, where the
// last two digits of the integer are the cents.
package money

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var fallbackLocale = language.AmericanEnglish

// ProcessLocale resolves the monetary locale of the process from the
// environment, in order LC_ALL, LC_MONETARY then LANG. It falls back to
// en-US when none of them hold a usable locale (ex. "C" or "POSIX").
func ProcessLocale() language.Tag {
	for _, key := range []string{"LC_ALL", "LC_MONETARY", "LANG"} {
		tag, ok := parseLocale(os.Getenv(key))
		if ok {
			return tag
		}
	}
	return fallbackLocale
}

// parseLocale accepts posix locale names like `pt_BR.UTF-8` or `de_DE@euro`.
func parseLocale(value string) (language.Tag, bool) {
	if i := strings.IndexAny(value, ".@"); i >= 0 {
		value = value[:i]
	}
	if value == "" || value == "C" || value == "POSIX" {
		return language.Und, false
	}
	tag, err := language.Parse(strings.ReplaceAll(value, "_", "-"))
	if err != nil {
		return language.Und, false
	}
	return tag, true
}

// Format formats `raw` hundredths in the currency of the process locale,
// ex. 599 -> "$5.99" and 5 -> "$0.05" under en_US. The currency symbol is
// always placed before the digits, whatever the locale's convention
// (de_DE gives "€5,99" rather than "5,99 €").
func Format(raw int64) string {
	return FormatIn(raw, ProcessLocale())
}

// ParseRaw reads a price that arrives as text, ex. "599".
func ParseRaw(raw string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("money: invalid price %q: %w", raw, err)
	}
	return n, nil
}

// FormatString is Format for prices that arrive as text.
func FormatString(raw string) (string, error) {
	n, err := ParseRaw(raw)
	if err != nil {
		return "", err
	}
	return Format(n), nil
}

// FormatIn formats `raw` hundredths in the currency used by `tag`'s region.
// The symbol goes before the digits as in Format.
func FormatIn(raw int64, tag language.Tag) string {
	unit, confidence := currency.FromTag(tag)
	if confidence == language.No {
		unit = currency.USD
	}
	scale, _ := currency.Standard.Rounding(unit)

	sign := ""
	abs := uint64(raw)
	if raw < 0 {
		sign = "-"
		abs = -abs
	}
	whole, fraction := splitHundredths(abs, scale)

	p := message.NewPrinter(tag)
	out := sign + p.Sprint(currency.Symbol(unit)) + p.Sprint(number.Decimal(whole))
	if scale > 0 {
		out += decimalSeparator(p) + p.Sprint(number.Decimal(
			fraction,
			number.MinIntegerDigits(scale),
			number.NoSeparator(),
		))
	}
	return out
}

// splitHundredths splits an amount of hundredths into its whole units and
// the fraction rendered with `scale` digits, rounding half up when the
// currency has less than two.
func splitHundredths(hundredths uint64, scale int) (whole, fraction uint64) {
	if scale >= 2 {
		return hundredths / 100, (hundredths % 100) * pow10(scale-2)
	}
	divisor := pow10(2 - scale)
	rounded := (hundredths + divisor/2) / divisor
	return rounded / pow10(scale), rounded % pow10(scale)
}

func pow10(n int) uint64 {
	out := uint64(1)
	for ; n > 0; n-- {
		out *= 10
	}
	return out
}

// decimalSeparator returns the separator the printer's locale puts between
// the integer and fraction digits.
func decimalSeparator(p *message.Printer) string {
	runes := []rune(p.Sprint(number.Decimal(0.5, number.Scale(1))))
	if len(runes) < 3 {
		return "."
	}
	return string(runes[1 : len(runes)-1])
}
