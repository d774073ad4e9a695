// CourseCompass - Course Discovery Platform Usage Metrics
// Copyright 2026 CourseCompass Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursecompass/coursecompass

package usage

import "time"

// hourKeyLayout is the UTC hour bucket format: YYYY-MM-DD-HH.
const hourKeyLayout = "2006-01-02-15"

// HourKey returns the UTC hour bucket identifier for t.
func HourKey(t time.Time) string {
	return t.UTC().Format(hourKeyLayout)
}

// PreviousHourKey returns the hour bucket immediately before t's bucket.
// time.Add handles day/month/year rollover.
func PreviousHourKey(t time.Time) string {
	return HourKey(t.UTC().Add(-time.Hour))
}

// SecondsUntilNextHour returns the number of whole seconds from t until the
// top of the next hour. Used to keep cached metric responses from straddling
// an hour-boundary snapshot.
func SecondsUntilNextHour(t time.Time) int {
	t = t.UTC()
	next := t.Truncate(time.Hour).Add(time.Hour)
	return int(next.Sub(t).Seconds())
}
