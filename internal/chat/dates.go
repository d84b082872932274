package chat

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	isoDatePattern   = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	slashDatePattern = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`)
	dayFirstPattern  = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+([a-zA-Z]+)(?:\s+(\d{2,4}))?\b`)
	monthFirstPatten = regexp.MustCompile(`\b([a-zA-Z]+)\s+(\d{1,2})(?:st|nd|rd|th)?(?:\s+(\d{2,4}))?\b`)
	weekdayPattern   = regexp.MustCompile(`(next\s+)?(monday|tuesday|wednesday|thursday|friday|saturday|sunday)`)
)

var weekdays = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

func monthFromWord(word string) (time.Month, bool) {
	w := strings.ToLower(word)
	if len(w) >= 3 {
		if m, ok := months[w[:3]]; ok {
			return m, true
		}
	}
	return 0, false
}

// ResolveDueDate turns relative phrasing like "tomorrow" or "next
// Friday" into an ISO date. Text that cannot be resolved is returned
// unchanged so the model can ask again.
func ResolveDueDate(text string, today time.Time) string {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if lowered == "" {
		return text
	}
	if _, err := time.Parse("2006-01-02", lowered); err == nil {
		return lowered
	}
	if strings.Contains(lowered, "today") {
		return today.Format("2006-01-02")
	}
	if strings.Contains(lowered, "tomorrow") {
		return today.AddDate(0, 0, 1).Format("2006-01-02")
	}
	if m := weekdayPattern.FindStringSubmatch(lowered); m != nil {
		target := weekdays[m[2]]
		ahead := (int(target) - int(today.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return today.AddDate(0, 0, ahead).Format("2006-01-02")
	}
	return text
}

// NormalizeDueDate parses free-form date text into an ISO date. It
// accepts relative phrasing, ISO dates, day/month slashes and written
// months. The second return is false when nothing date-like was found.
func NormalizeDueDate(text string, today time.Time) (string, bool) {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return "", false
	}
	if resolved := ResolveDueDate(cleaned, today); resolved != cleaned {
		return resolved, true
	}

	if m := isoDatePattern.FindStringSubmatch(cleaned); m != nil {
		return buildDate(atoi(m[1]), time.Month(atoi(m[2])), atoi(m[3]))
	}
	if m := slashDatePattern.FindStringSubmatch(cleaned); m != nil {
		// day/month[/year], British ordering
		year := today.Year()
		if m[3] != "" {
			year = atoi(m[3])
			if year < 100 {
				year += 2000
			}
		}
		return buildDate(year, time.Month(atoi(m[2])), atoi(m[1]))
	}
	if m := dayFirstPattern.FindStringSubmatch(strings.ToLower(cleaned)); m != nil {
		if month, ok := monthFromWord(m[2]); ok {
			year := today.Year()
			if m[3] != "" {
				year = atoi(m[3])
				if year < 100 {
					year += 2000
				}
			}
			return buildDate(year, month, atoi(m[1]))
		}
	}
	if m := monthFirstPatten.FindStringSubmatch(strings.ToLower(cleaned)); m != nil {
		if month, ok := monthFromWord(m[1]); ok {
			year := today.Year()
			if m[3] != "" {
				year = atoi(m[3])
				if year < 100 {
					year += 2000
				}
			}
			return buildDate(year, month, atoi(m[2]))
		}
	}
	return "", false
}

func buildDate(year int, month time.Month, day int) (string, bool) {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return "", false
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// reject overflow like 31 February
	if d.Day() != day || d.Month() != month {
		return "", false
	}
	return d.Format("2006-01-02"), true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// Today returns the current date in the bakery's timezone.
func Today() time.Time {
	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		return time.Now().UTC()
	}
	now := time.Now().In(loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
}
