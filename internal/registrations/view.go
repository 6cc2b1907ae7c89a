package registrations

import (
	"strings"

	"github.com/google/uuid"

	"github.com/hackhub-cms/backend/internal/models"
)

// StatusAll disables status filtering.
const StatusAll = "all"

// Filter is the admin's current selection. A nil HackathonID matches every
// event; an empty or "all" Status matches every status.
type Filter struct {
	HackathonID uuid.UUID
	Status      string
	Query       string
}

// Matches reports whether r passes the filter. "pending" also matches
// registrations with no stored status.
func (f Filter) Matches(r models.Registration) bool {
	if f.HackathonID != uuid.Nil && r.HackathonID != f.HackathonID {
		return false
	}
	if f.Status != "" && f.Status != StatusAll && r.EffectiveStatus() != models.RegistrationStatus(f.Status) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		return strings.Contains(strings.ToLower(r.Name), q) ||
			strings.Contains(strings.ToLower(r.Email), q) ||
			strings.Contains(strings.ToLower(r.Phone), q)
	}
	return true
}

// Counts tallies registrations per effective status.
type Counts struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Rejected  int `json:"rejected"`
}

// View is an immutable snapshot of the loaded registrations plus the active
// filter. Every transformation returns a new View.
type View struct {
	Filter        Filter                `json:"filter"`
	Registrations []models.Registration `json:"registrations"`
}

// NewView copies regs into a fresh View.
func NewView(f Filter, regs []models.Registration) View {
	return View{Filter: f, Registrations: append([]models.Registration(nil), regs...)}
}

// WithFilter returns the same records under a different filter.
func (v View) WithFilter(f Filter) View {
	return View{Filter: f, Registrations: v.Registrations}
}

// Visible returns the records passing the filter, in load order.
func (v View) Visible() []models.Registration {
	out := []models.Registration{}
	for _, r := range v.Registrations {
		if v.Filter.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// Counts tallies the records of hackathonID (every record when uuid.Nil).
func (v View) Counts(hackathonID uuid.UUID) Counts {
	var c Counts
	for _, r := range v.Registrations {
		if hackathonID != uuid.Nil && r.HackathonID != hackathonID {
			continue
		}
		c.Total++
		switch r.EffectiveStatus() {
		case models.StatusPending:
			c.Pending++
		case models.StatusConfirmed:
			c.Confirmed++
		case models.StatusRejected:
			c.Rejected++
		}
	}
	return c
}

// PendingCount is the badge value for hackathonID.
func (v View) PendingCount(hackathonID uuid.UUID) int {
	return v.Counts(hackathonID).Pending
}

// PendingCandidates returns the ids eligible for "confirm all pending": visible
// records of hackathonID that are pending or have no status.
func (v View) PendingCandidates(hackathonID uuid.UUID) []uuid.UUID {
	var ids []uuid.UUID
	for _, r := range v.Visible() {
		if r.HackathonID == hackathonID && r.EffectiveStatus() == models.StatusPending {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

// ApplyStatus returns a View where exactly the records in ids carry status.
func (v View) ApplyStatus(ids []uuid.UUID, status models.RegistrationStatus) View {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	out := make([]models.Registration, len(v.Registrations))
	for i, r := range v.Registrations {
		if _, ok := set[r.ID]; ok {
			r.Status = status
		}
		out[i] = r
	}
	return View{Filter: v.Filter, Registrations: out}
}
