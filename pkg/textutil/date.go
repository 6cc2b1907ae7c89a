package textutil

import "time"

// ShortDateLayout is the short locale date used in exports and emails (en-US).
const ShortDateLayout = "1/2/2006"

// ShortDate formats t as a short date; the zero time renders empty.
func ShortDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(ShortDateLayout)
}
