package billing

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatMoney renders an amount with grouping and two decimals, e.g. "USD 1,250.00".
// The amount is never converted to a float.
func FormatMoney(amount decimal.Decimal, currency string) string {
	fixed := amount.StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	whole, frac, _ := strings.Cut(fixed, ".")

	grouped := groupDigits(whole)
	if n, err := decimal.NewFromString(whole); err == nil && n.BigInt().IsInt64() {
		grouped = printer.Sprintf("%d", n.IntPart())
	}
	text := sign + grouped + "." + frac
	if currency == "" {
		return text
	}
	return currency + " " + text
}

// groupDigits inserts thousands separators into a run of digits.
func groupDigits(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
