// Package numbering renders document numbers and decides when series counters restart.
package numbering

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/gestiopro/gestiohub.go/common"
)

const (
	DefaultFormat = "{CODE}-{YYYY}-{NUM:5}"
	DefaultWidth  = 5
	LegacyWidth   = 5
)

var tokenRe = regexp.MustCompile(`\{(CODE|TYPE|YYYY|YY|MM|NUM)(?::(\d{1,2}))?\}`)

// NeedsReset reports whether a series counter restarts at 1 for a number issued at now.
// A zero lastReset means the series never reset.
func NeedsReset(policy string, lastReset time.Time, now time.Time) bool {
	switch policy {
	case common.ResetPolicyAnnual:
		return lastReset.IsZero() || lastReset.Year() != now.Year()
	case common.ResetPolicyMonthly:
		return lastReset.IsZero() || lastReset.Year() != now.Year() || lastReset.Month() != now.Month()
	}
	return false
}

func ValidResetPolicy(policy string) bool {
	switch policy {
	case common.ResetPolicyNone, common.ResetPolicyAnnual, common.ResetPolicyMonthly:
		return true
	}
	return false
}

// Format renders a series template. Supported tokens:
// {CODE} {TYPE} {YYYY} {YY} {MM} {NUM} {NUM:n}
func Format(template, code string, docType common.DocumentType, counter int64, at time.Time) string {
	if template == "" {
		template = DefaultFormat
	}
	return tokenRe.ReplaceAllStringFunc(template, func(token string) string {
		m := tokenRe.FindStringSubmatch(token)
		switch m[1] {
		case "CODE":
			return code
		case "TYPE":
			return docType.ShortCode()
		case "YYYY":
			return fmt.Sprintf("%04d", at.Year())
		case "YY":
			return fmt.Sprintf("%02d", at.Year()%100)
		case "MM":
			return fmt.Sprintf("%02d", int(at.Month()))
		case "NUM":
			width := DefaultWidth
			if m[2] != "" {
				width, _ = strconv.Atoi(m[2])
			}
			return fmt.Sprintf("%0*d", width, counter)
		}
		return token
	})
}

// FormatLegacy renders the pre-series numbering scheme, e.g. FAC00007.
func FormatLegacy(prefix string, counter int64) string {
	return fmt.Sprintf("%s%0*d", prefix, LegacyWidth, counter)
}
