package conversation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/salon-booking-platform/internal/textparse"
)

// DateOrder says how numeric dates such as 03/04 are read.
type DateOrder string

const (
	DateOrderDMY DateOrder = "dmy"
	DateOrderMDY DateOrder = "mdy"
)

// ParseDateOrder falls back to day-first for anything unrecognized.
func ParseDateOrder(s string) DateOrder {
	if strings.EqualFold(strings.TrimSpace(s), string(DateOrderMDY)) {
		return DateOrderMDY
	}
	return DateOrderDMY
}

var (
	fillerPrefixRE = regexp.MustCompile(`^(?:(?:on|for|at|how about|what about|maybe|lets do|let's do|i want|i'd like)\s+)+`)
	fillerSuffixRE = regexp.MustCompile(`\s+(?:please|pls|thanks|thank you)$`)

	isoDateRE     = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	numericDateRE = regexp.MustCompile(`^(\d{1,2})[/.-](\d{1,2})(?:[/.-](\d{2}|\d{4}))?$`)
	dayMonthRE    = regexp.MustCompile(`^(?:[a-z]+,?\s+)?(?:the\s+)?(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?([a-z]{3,})\.?(?:,?\s+(\d{4}))?$`)
	monthDayRE    = regexp.MustCompile(`^(?:[a-z]+,?\s+)?([a-z]{3,})\.?\s+(?:the\s+)?(\d{1,2})(?:st|nd|rd|th)?(?:,?\s+(\d{4}))?$`)
	weekdayRE     = regexp.MustCompile(`^(?:(this|next|coming)\s+)?([a-z]+)$`)
	dayOrdinalRE  = regexp.MustCompile(`^(?:the\s+)?(\d{1,2})(?:st|nd|rd|th)$`)

	clock24RE    = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?:\s*(?:hrs|h))?$`)
	meridiemRE   = regexp.MustCompile(`^(\d{1,2})(?:[:.](\d{2}))?\s*(a\.?m\.?|p\.?m\.?)$`)
	oclockRE     = regexp.MustCompile(`^(\d{1,2})\s*o'?clock\s+(?:in the\s+)?(morning|afternoon|evening)$`)
	changeStepRE = regexp.MustCompile(`^(?:change|different|another|switch|edit|pick another|choose another|new)\s+(?:the\s+|my\s+)?(service|date|day|time|slot)$`)
)

var monthNames = []string{"january", "february", "march", "april", "may", "june", "july",
	"august", "september", "october", "november", "december"}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

func monthFromWord(word string) (time.Month, bool) {
	word = strings.TrimSuffix(word, ".")
	if len(word) < 3 {
		return 0, false
	}
	if word == "sept" {
		return time.September, true
	}
	for i, name := range monthNames {
		if strings.HasPrefix(name, word) {
			return time.Month(i + 1), true
		}
	}
	return 0, false
}

func stripFiller(raw string) string {
	s := textparse.Normalize(raw)
	s = fillerSuffixRE.ReplaceAllString(s, "")
	s = fillerPrefixRE.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// calendarDate builds y-m-d in loc, rejecting days that do not exist.
func calendarDate(y int, m time.Month, d int, loc *time.Location) (time.Time, bool) {
	if m < time.January || m > time.December || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, m, d, 0, 0, 0, 0, loc)
	if t.Day() != d || t.Month() != m {
		return time.Time{}, false
	}
	return t, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func yearOrDefault(s string, fallback int) int {
	switch len(s) {
	case 0:
		return fallback
	case 2:
		return 2000 + atoi(s)
	default:
		return atoi(s)
	}
}

// upcoming builds a calendar date for a phrase that may omit the year. With no
// year given, a date before today means the same day next year.
func upcoming(year string, m time.Month, d int, today time.Time) (time.Time, bool) {
	t, ok := calendarDate(yearOrDefault(year, today.Year()), m, d, today.Location())
	if !ok || year != "" || !t.Before(today) {
		return t, ok
	}
	return calendarDate(today.Year()+1, m, d, today.Location())
}

// ParseDate reads a date phrase relative to today (midnight in the salon
// timezone). offered is the last displayed date list as YYYY-MM-DD. A phrase
// with an explicit year may lie in the past; range checks are the caller's job.
func ParseDate(raw string, today time.Time, offered []string, order DateOrder) (time.Time, bool) {
	s := stripFiller(raw)
	if s == "" {
		return time.Time{}, false
	}
	loc := today.Location()

	switch s {
	case "today", "tonight":
		return today, true
	case "tomorrow", "tmrw", "tmr", "tomorow", "tommorow":
		return today.AddDate(0, 0, 1), true
	case "day after tomorrow", "the day after tomorrow":
		return today.AddDate(0, 0, 2), true
	}

	if m := isoDateRE.FindStringSubmatch(s); m != nil {
		return calendarDate(atoi(m[1]), time.Month(atoi(m[2])), atoi(m[3]), loc)
	}

	if m := numericDateRE.FindStringSubmatch(s); m != nil {
		first, second := atoi(m[1]), atoi(m[2])
		day, month := first, second
		if order == DateOrderMDY {
			day, month = second, first
		}
		return upcoming(m[3], time.Month(month), day, today)
	}

	if m := dayMonthRE.FindStringSubmatch(s); m != nil {
		if month, ok := monthFromWord(m[2]); ok {
			return upcoming(m[3], month, atoi(m[1]), today)
		}
	}
	if m := monthDayRE.FindStringSubmatch(s); m != nil {
		if month, ok := monthFromWord(m[1]); ok {
			return upcoming(m[3], month, atoi(m[2]), today)
		}
	}

	if m := weekdayRE.FindStringSubmatch(s); m != nil {
		if wd, ok := weekdayNames[m[2]]; ok {
			ahead := (int(wd) - int(today.Weekday()) + 7) % 7
			if ahead == 0 && m[1] == "next" {
				ahead = 7
			}
			return today.AddDate(0, 0, ahead), true
		}
	}

	if m := dayOrdinalRE.FindStringSubmatch(s); m != nil {
		d := atoi(m[1])
		for i := 0; i < 3; i++ {
			month := today.AddDate(0, i, 1-today.Day())
			if t, ok := calendarDate(month.Year(), month.Month(), d, loc); ok && !t.Before(today) {
				return t, true
			}
		}
		return time.Time{}, false
	}

	if n, ok := textparse.ParseOrdinal(s); ok {
		if n >= 1 && n <= len(offered) {
			t, err := time.ParseInLocation(time.DateOnly, offered[n-1], loc)
			if err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// ParseTime reads a time phrase and returns it as 24h HH:MM. A bare number is
// a position in offered, the last displayed slot list.
func ParseTime(raw string, offered []string) (string, bool) {
	s := stripFiller(raw)
	if s == "" {
		return "", false
	}
	switch s {
	case "noon", "midday", "12 noon":
		return "12:00", true
	}

	if m := clock24RE.FindStringSubmatch(s); m != nil {
		h, mm := atoi(m[1]), atoi(m[2])
		if h > 23 || mm > 59 {
			return "", false
		}
		return formatClock(h, mm), true
	}

	if m := meridiemRE.FindStringSubmatch(s); m != nil {
		h, mm := atoi(m[1]), atoi(m[2])
		if h < 1 || h > 12 || mm > 59 {
			return "", false
		}
		return formatClock(to24(h, strings.HasPrefix(m[3], "p")), mm), true
	}

	if m := oclockRE.FindStringSubmatch(s); m != nil {
		h := atoi(m[1])
		if h < 1 || h > 12 {
			return "", false
		}
		return formatClock(to24(h, m[2] != "morning"), 0), true
	}

	if n, ok := textparse.ParseOrdinal(s); ok && n >= 1 && n <= len(offered) {
		return offered[n-1], true
	}
	return "", false
}

func to24(h int, pm bool) int {
	switch {
	case pm && h != 12:
		return h + 12
	case !pm && h == 12:
		return 0
	}
	return h
}

func formatClock(h, m int) string {
	return fmt.Sprintf("%02d:%02d", h, m)
}

type intent int

const (
	intentNone intent = iota
	intentReset
	intentHelp
	intentYes
	intentNo
	intentChangeService
	intentChangeDate
	intentChangeTime
)

var (
	resetWords = map[string]bool{"reset": true, "restart": true, "start over": true, "start again": true,
		"cancel": true, "cancel booking": true, "begin again": true}
	helpWords = map[string]bool{"help": true, "?": true, "what can i say": true, "how does this work": true}
	yesWords  = map[string]bool{"yes": true, "y": true, "yeah": true, "yep": true, "yup": true, "ya": true,
		"yes please": true, "confirm": true, "confirmed": true, "ok": true, "okay": true, "sure": true,
		"book it": true, "go ahead": true, "correct": true, "sounds good": true, "perfect": true, "done": true}
	noWords = map[string]bool{"no": true, "n": true, "nope": true, "nah": true, "wrong": true,
		"no thanks": true, "not that": true, "that's wrong": true}
)

// classify detects control phrases. Bare step names only count as edits when
// bareEdits is set, which the confirmation step does.
func classify(raw string, bareEdits bool) intent {
	if strings.TrimSpace(raw) == "?" {
		return intentHelp
	}
	s := textparse.Normalize(raw)
	switch {
	case resetWords[s]:
		return intentReset
	case helpWords[s]:
		return intentHelp
	case yesWords[s]:
		return intentYes
	case noWords[s]:
		return intentNo
	}
	target := ""
	if m := changeStepRE.FindStringSubmatch(s); m != nil {
		target = m[1]
	} else if bareEdits {
		target = s
	}
	switch target {
	case "service":
		return intentChangeService
	case "date", "day":
		return intentChangeDate
	case "time", "slot":
		return intentChangeTime
	}
	return intentNone
}
