package app

import (
	"fmt"
	"time"

	"allocator/internal/util"
)

// Rebalance timestamps land at US market open or close, expressed in UTC.
const (
	marketOpenHour    = 14
	marketOpenMinute  = 30
	marketCloseHour   = 21
	marketCloseMinute = 0
)

func marketTime(date time.Time, preMarket bool) time.Time {
	hour, minute := marketCloseHour, marketCloseMinute
	if preMarket {
		hour, minute = marketOpenHour, marketOpenMinute
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, time.UTC)
}

func isBusinessDay(date time.Time) bool {
	return date.Weekday() != time.Saturday && date.Weekday() != time.Sunday
}

// BuyAndHoldSchedule rebalances exactly once, at the start date.
func BuyAndHoldSchedule(startDate time.Time, preMarket bool) []time.Time {
	return []time.Time{marketTime(startDate, preMarket)}
}

// DailySchedule rebalances every business day between the start and end
// dates inclusive.
func DailySchedule(startDate, endDate time.Time, preMarket bool) []time.Time {
	schedule := []time.Time{}
	for date := startDate; util.DateLte(date, endDate); date = date.AddDate(0, 0, 1) {
		if isBusinessDay(date) {
			schedule = append(schedule, marketTime(date, preMarket))
		}
	}
	return schedule
}

// WeeklySchedule rebalances once per week on the given weekday between the
// start and end dates inclusive. Weekend days are rejected.
func WeeklySchedule(startDate, endDate time.Time, weekday time.Weekday, preMarket bool) ([]time.Time, error) {
	if weekday == time.Saturday || weekday == time.Sunday {
		return nil, fmt.Errorf("rebalance weekday %s is not a business day", weekday)
	}
	schedule := []time.Time{}
	for date := startDate; util.DateLte(date, endDate); date = date.AddDate(0, 0, 1) {
		if date.Weekday() == weekday {
			schedule = append(schedule, marketTime(date, preMarket))
		}
	}
	return schedule, nil
}

// EndOfMonthSchedule rebalances on the final business day of each calendar
// month between the start and end dates inclusive.
func EndOfMonthSchedule(startDate, endDate time.Time, preMarket bool) []time.Time {
	schedule := []time.Time{}
	for date := startDate; util.DateLte(date, endDate); date = date.AddDate(0, 0, 1) {
		if !isBusinessDay(date) {
			continue
		}
		if lastBusinessDayOfMonth(date.Year(), date.Month()).Equal(
			time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC),
		) {
			schedule = append(schedule, marketTime(date, preMarket))
		}
	}
	return schedule
}

func lastBusinessDayOfMonth(year int, month time.Month) time.Time {
	// Day zero of the next month is the final calendar day of this one.
	date := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
	for !isBusinessDay(date) {
		date = date.AddDate(0, 0, -1)
	}
	return date
}
