package parser

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseCount turns a spoken or typed number ("1,250", "$1,250.50", " 45 ")
// into an integer count. Decimals round half away from zero. ok is false for
// blank or unparseable input.
func ParseCount(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	return int(d.Round(0).IntPart()), true
}
