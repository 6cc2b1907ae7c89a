package compose

import (
	"github.com/hackhub-cms/backend/internal/models"
	"github.com/hackhub-cms/backend/pkg/textutil"
)

// Event-level tokens filled when a preset is selected.
const (
	TokenHackathon = "hackathon"
	TokenDate      = "date"
	TokenLocation  = "location"
	TokenLink      = "link"
)

// EventDetails are the event facts a message may mention.
type EventDetails struct {
	Title    string
	Date     string
	Location string
	Link     string
}

// DetailsFor builds EventDetails for h; the link points at the public event page.
func DetailsFor(h *models.Hackathon, siteURL string) EventDetails {
	return EventDetails{
		Title:    h.Title,
		Date:     textutil.ShortDate(h.Date),
		Location: h.Location,
		Link:     siteURL + "/hackathons/" + h.Slug,
	}
}

// Vars returns the event token map.
func (d EventDetails) Vars() map[string]string {
	return map[string]string{
		TokenHackathon: d.Title,
		TokenDate:      d.Date,
		TokenLocation:  d.Location,
		TokenLink:      d.Link,
	}
}

// RegistrationReceived renders the acknowledgement sent after a public submission.
func RegistrationReceived(d EventDetails, name, email string) Template {
	return Expand(received.Template(d.Vars()), RecipientVars(name, email))
}
