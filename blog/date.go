package blog

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/locales/pt_BR"
)

var ptBR = pt_BR.New()

// FormatDate renders t as "dd MMM yyyy" with Brazilian Portuguese month
// abbreviations, e.g. "15 mar 2021". t is formatted in its own location.
func FormatDate(t time.Time) string {
	month := strings.TrimSuffix(ptBR.MonthAbbreviated(t.Month()), ".")
	return fmt.Sprintf("%02d %s %d", t.Day(), month, t.Year())
}

// FormatOptionalDate is FormatDate for dates the CMS may leave empty.
func FormatOptionalDate(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	if loc != nil {
		return FormatDate(t.In(loc))
	}
	return FormatDate(*t)
}
