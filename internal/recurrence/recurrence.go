// Package recurrence computes the next fire instant for a recurring
// reminder. Next is a pure function of the current trigger time and the
// pattern; it never touches the clock, so the scheduler and the fallback
// sweep advance reminders with identical semantics.
package recurrence

import (
	"strings"
	"time"

	"github.com/teambition/rrule-go"
	"github.com/wb-go/wbf/zlog"

	"github.com/echojournal/reminderd/internal/model"
)

// Next returns the trigger time following current for the given pattern.
//
// Advancement is calendar arithmetic, not wall-clock duration, so a daily
// reminder keeps its local clock time across DST transitions. Monthly and
// yearly steps clamp to the last valid day of the target month (Jan 31 ->
// Feb 28/29). An unknown or missing frequency falls back to daily.
func Next(current time.Time, p *model.Pattern) time.Time {
	if p == nil {
		return current.AddDate(0, 0, 1)
	}

	var next time.Time

	switch p.Frequency {
	case model.FrequencyWeekly:
		if len(p.DaysOfWeek) > 0 {
			next = nextWeekday(current, p.DaysOfWeek)
		} else {
			next = current.AddDate(0, 0, 7)
		}
	case model.FrequencyMonthly:
		next = addMonthsClamped(current, 1)
	case model.FrequencyYearly:
		next = addYearsClamped(current, 1)
	case model.FrequencyCustom:
		next = nextCustom(current, p.Custom)
	case model.FrequencyDaily:
		next = current.AddDate(0, 0, 1)
	default:
		next = current.AddDate(0, 0, 1)
	}

	return applyClockOverride(next, p.Time)
}

// nextWeekday advances day by day until it lands on one of the allowed
// weekdays (0=Sunday..6=Saturday), always moving at least one day forward.
func nextWeekday(current time.Time, days []int) time.Time {
	allowed := make(map[int]bool, len(days))
	for _, d := range days {
		allowed[d] = true
	}

	next := current.AddDate(0, 0, 1)
	for i := 0; i < 7; i++ {
		if allowed[int(next.Weekday())] {
			return next
		}
		next = next.AddDate(0, 0, 1)
	}

	// No valid weekday in the set, fall back to a plain weekly step.
	return current.AddDate(0, 0, 7)
}

func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	// Normalize the target month via the first of the month, then clamp
	// the day instead of letting AddDate roll over (Jan 31 -> Mar 2).
	first := time.Date(year, month+time.Month(months), 1, hour, min, sec, t.Nanosecond(), t.Location())
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}

	return time.Date(first.Year(), first.Month(), day, hour, min, sec, t.Nanosecond(), t.Location())
}

func addYearsClamped(t time.Time, years int) time.Time {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	if last := daysIn(year+years, month); day > last {
		day = last
	}

	return time.Date(year+years, month, day, hour, min, sec, t.Nanosecond(), t.Location())
}

// daysIn returns the number of days in the given month.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// nextCustom resolves the next occurrence of an RFC 5545 RRULE string
// strictly after current. A malformed or exhausted rule falls back to the
// daily step so a bad pattern never stalls the reminder.
func nextCustom(current time.Time, ruleStr string) time.Time {
	ruleStr = strings.TrimPrefix(ruleStr, "RRULE:")

	opt, err := rrule.StrToROption(ruleStr)
	if err != nil {
		zlog.Logger.Warn().Err(err).Str("rule", ruleStr).Msg("invalid custom recurrence rule, falling back to daily")
		return current.AddDate(0, 0, 1)
	}
	opt.Dtstart = current

	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		zlog.Logger.Warn().Err(err).Str("rule", ruleStr).Msg("invalid custom recurrence rule, falling back to daily")
		return current.AddDate(0, 0, 1)
	}

	next := rule.After(current, false)
	if next.IsZero() {
		return current.AddDate(0, 0, 1)
	}

	return next
}

// applyClockOverride pins the result to the pattern's "HH:MM" clock time,
// when one is set. An unparsable value is ignored.
func applyClockOverride(t time.Time, clock string) time.Time {
	if clock == "" {
		return t
	}

	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		zlog.Logger.Warn().Err(err).Str("time", clock).Msg("invalid pattern time, keeping computed clock")
		return t
	}

	return time.Date(t.Year(), t.Month(), t.Day(), parsed.Hour(), parsed.Minute(), 0, 0, t.Location())
}
