package adherence

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DayStart returns midnight of t's calendar day in loc.
func DayStart(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// minutesOfDay parses an HH:MM string into minutes since midnight.
func minutesOfDay(tod string) (int, bool) {
	var h, m int
	if _, err := fmt.Sscanf(tod, "%2d:%2d", &h, &m); err != nil {
		return 0, false
	}
	if len(tod) != 5 || tod[2] != ':' || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// DoseKey builds the slot identity string <itemID>-<YYYY-MM-DD>-<HH:MM>.
// Every logging path must derive keys with this function so a dose the
// patient confirmed is never re-created as missed.
func DoseKey(itemID uuid.UUID, day time.Time, timeOfDay string) string {
	return fmt.Sprintf("%s-%s-%s", itemID, day.Format("2006-01-02"), timeOfDay)
}

// SlotsForDay enumerates the item's expected dose slots for the calendar day
// containing day, ordered as the schedule lists them. Malformed times are
// skipped; an empty schedule yields no slots.
func SlotsForDay(item *ScheduledItem, day time.Time, loc *time.Location) []DoseSlot {
	start := DayStart(day, loc)
	slots := make([]DoseSlot, 0, len(item.TimesOfDay))
	for _, tod := range item.TimesOfDay {
		mins, ok := minutesOfDay(tod)
		if !ok {
			continue
		}
		slots = append(slots, DoseSlot{
			ItemID:    item.ItemID,
			Day:       start,
			TimeOfDay: tod,
			At:        start.Add(time.Duration(mins) * time.Minute),
			Key:       DoseKey(item.ItemID, start, tod),
		})
	}
	return slots
}
