package registrations

import (
	"errors"
	"strings"
	"time"

	"github.com/hackhub-cms/backend/internal/models"
	"github.com/hackhub-cms/backend/pkg/textutil"
)

// ErrNothingToExport is returned for an empty selection; no file is produced.
var ErrNothingToExport = errors.New("nothing to export")

// ExportContentType is the media type of Serialize output.
const ExportContentType = "text/csv; charset=utf-8"

var exportHeader = []string{"Name", "Email", "Phone", "Hackathon", "Status", "Registration Date"}

// Serialize renders regs as CSV: a header row then one row per registration,
// every field double-quoted. Rows end with "\n".
func Serialize(regs []models.Registration) ([]byte, error) {
	if len(regs) == 0 {
		return nil, ErrNothingToExport
	}
	var b strings.Builder
	writeRow(&b, exportHeader)
	for _, r := range regs {
		writeRow(&b, []string{
			r.Name,
			r.Email,
			r.Phone,
			r.HackathonTitle,
			string(r.EffectiveStatus()),
			textutil.ShortDate(r.CreatedAt),
		})
	}
	return []byte(b.String()), nil
}

func writeRow(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
}

// Filename names an export taken at now, scoped to one hackathon when title is set.
func Filename(now time.Time, title string) string {
	date := now.Format("2006-01-02")
	if slug := textutil.Slugify(title); slug != "" {
		return "registrations-" + slug + "-" + date + ".csv"
	}
	return "registrations-" + date + ".csv"
}
