package ics

import (
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/require"
)

type parsedEvent struct {
	UID         string
	Summary     string
	Description string
	Location    string
	Status      string
	Start       time.Time
	End         time.Time
}

func (e parsedEvent) cancelled() bool {
	return strings.EqualFold(e.Status, "CANCELLED")
}

func property(ve *ical.VEvent, p ical.ComponentProperty) string {
	if prop := ve.GetProperty(p); prop != nil {
		return prop.Value
	}
	return ""
}

// parseEvents reads back the VEVENTs of a serialized calendar.
func parseEvents(t *testing.T, body string) []parsedEvent {
	t.Helper()
	cal, err := ical.ParseCalendar(strings.NewReader(body))
	require.NoError(t, err)

	var out []parsedEvent
	for _, ve := range cal.Events() {
		start, err := ve.GetStartAt()
		require.NoError(t, err)
		end, err := ve.GetEndAt()
		require.NoError(t, err)
		out = append(out, parsedEvent{
			UID:         property(ve, ical.ComponentPropertyUniqueId),
			Summary:     property(ve, ical.ComponentPropertySummary),
			Description: property(ve, ical.ComponentPropertyDescription),
			Location:    property(ve, ical.ComponentPropertyLocation),
			Status:      property(ve, ical.ComponentPropertyStatus),
			Start:       start,
			End:         end,
		})
	}
	return out
}
