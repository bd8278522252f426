package scheduler

import (
	"fmt"
	"time"
)

// MarketSchedule is the NSE cash market session in India Standard Time
type MarketSchedule struct {
	OpenHour  int // 9
	OpenMin   int // 15
	CloseHour int // 15
	CloseMin  int // 30
}

// DefaultMarketSchedule NSE/BSE regular session
func DefaultMarketSchedule() MarketSchedule {
	return MarketSchedule{
		OpenHour:  9,
		OpenMin:   15,
		CloseHour: 15,
		CloseMin:  30,
	}
}

// MarketStatus is the market state at a point in time
type MarketStatus struct {
	IsOpen         bool
	CurrentTimeIST time.Time
	OpenTime       time.Time
	CloseTime      time.Time
	TimeToOpen     time.Duration
	TimeToClose    time.Duration
	Reason         string // "open", "weekend", "holiday", "pre-market", "after-hours"
}

// ISTLocation returns the Asia/Kolkata zone
func ISTLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// India has no daylight saving
		loc = time.FixedZone("IST", 5*60*60+30*60)
	}
	return loc
}

// GetMarketStatus reports whether the market is open at now
func GetMarketStatus(schedule MarketSchedule, now time.Time) MarketStatus {
	loc := ISTLocation()
	now = now.In(loc)

	status := MarketStatus{
		CurrentTimeIST: now,
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	status.OpenTime = today.Add(schedule.openOffset())
	status.CloseTime = today.Add(time.Duration(schedule.CloseHour)*time.Hour + time.Duration(schedule.CloseMin)*time.Minute)

	if !isTradingDay(today) {
		status.Reason = "weekend"
		if IsNSEHoliday(today) {
			status.Reason = "holiday"
		}
		status.TimeToOpen = nextTradingDay(today).Add(schedule.openOffset()).Sub(now)
		return status
	}

	switch {
	case now.Before(status.OpenTime):
		status.Reason = "pre-market"
		status.TimeToOpen = status.OpenTime.Sub(now)
	case !now.Before(status.CloseTime):
		status.Reason = "after-hours"
		status.TimeToOpen = nextTradingDay(today).Add(schedule.openOffset()).Sub(now)
	default:
		status.IsOpen = true
		status.Reason = "open"
		status.TimeToClose = status.CloseTime.Sub(now)
	}
	return status
}

func (s MarketSchedule) openOffset() time.Duration {
	return time.Duration(s.OpenHour)*time.Hour + time.Duration(s.OpenMin)*time.Minute
}

func isTradingDay(day time.Time) bool {
	wd := day.Weekday()
	return wd != time.Saturday && wd != time.Sunday && !IsNSEHoliday(day)
}

func nextTradingDay(day time.Time) time.Time {
	next := day.AddDate(0, 0, 1)
	for !isTradingDay(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// FormatDuration renders d as "2h 5m" or "5m"
func FormatDuration(d time.Duration) string {
	if d < 0 {
		return "0s"
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// NSE fixed-date trading holidays. Festival holidays move every year and
// are published by the exchange in December.
var nseHolidays = map[string]bool{
	"2026-01-26": true, // Republic Day
	"2026-04-03": true, // Good Friday
	"2026-04-14": true, // Dr. Baba Saheb Ambedkar Jayanti
	"2026-05-01": true, // Maharashtra Day
	"2026-10-02": true, // Mahatma Gandhi Jayanti
	"2026-12-25": true, // Christmas
}

// IsNSEHoliday reports whether t's date is a listed exchange holiday
func IsNSEHoliday(t time.Time) bool {
	return nseHolidays[t.In(ISTLocation()).Format("2006-01-02")]
}
