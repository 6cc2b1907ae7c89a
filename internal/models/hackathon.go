package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// HackathonStatus is the publication state of a hackathon.
type HackathonStatus string

const (
	HackathonUpcoming HackathonStatus = "upcoming"
	HackathonOngoing  HackathonStatus = "ongoing"
	HackathonFinished HackathonStatus = "finished"
	HackathonDraft    HackathonStatus = "draft"
)

// Valid reports whether s is a known hackathon status.
func (s HackathonStatus) Valid() bool {
	switch s {
	case HackathonUpcoming, HackathonOngoing, HackathonFinished, HackathonDraft:
		return true
	}
	return false
}

// PrizesVersion marks prize documents already converted to the array shape.
const PrizesVersion = 2

// Hackathon is one hackathon instance. Nested fields are stored as JSON text columns.
type Hackathon struct {
	ID                  uuid.UUID       `json:"id"`
	Title               string          `json:"title"`
	Theme               string          `json:"theme"`
	Date                time.Time       `json:"date"`
	Location            string          `json:"location"`
	Slug                string          `json:"slug"`
	Description         string          `json:"description"`
	Schedule            []ScheduleDay   `json:"schedule"`
	Prizes              Prizes          `json:"prizes"`
	FAQ                 []FAQItem       `json:"faq"`
	PartnershipLogos    []PartnerLogo   `json:"partnership_logos"`
	PosterImages        []PosterImage   `json:"poster_images"`
	EventStatus         HackathonStatus `json:"event_status"`
	RegistrationEndDate *time.Time      `json:"registration_end_date,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// RegistrationOpen reports whether the public may still register at now.
func (h *Hackathon) RegistrationOpen(now time.Time) bool {
	if h.EventStatus == HackathonDraft || h.EventStatus == HackathonFinished {
		return false
	}
	if h.RegistrationEndDate != nil && now.After(*h.RegistrationEndDate) {
		return false
	}
	return true
}

// ScheduleDay groups the agenda items of one day.
type ScheduleDay struct {
	Day    string         `json:"day"`
	Events []ScheduleItem `json:"events"`
}

// ScheduleItem is one agenda entry.
type ScheduleItem struct {
	Time        string `json:"time"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Prizes holds the fixed main-prize slots and the dynamic special prizes.
type Prizes struct {
	Version       int            `json:"version"`
	First         Prize          `json:"first"`
	Second        Prize          `json:"second"`
	Third         Prize          `json:"third"`
	SpecialPrizes []SpecialPrize `json:"special_prizes"`
}

// Prize is a main-prize slot.
type Prize struct {
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
}

// SpecialPrize is an admin-defined extra prize.
type SpecialPrize struct {
	Title       string `json:"title"`
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
}

// FAQItem is one question/answer pair.
type FAQItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// PartnerLogo is a sponsor logo shown on the site and in email footers.
type PartnerLogo struct {
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
	Link     string `json:"link,omitempty"`
}

// PosterImage is a poster shown on the event page, ordered by Order.
type PosterImage struct {
	URL   string `json:"url"`
	Alt   string `json:"alt,omitempty"`
	Order int    `json:"order"`
}

// SortPosters orders posters by their Order field, keeping input order on ties.
func SortPosters(p []PosterImage) {
	sort.SliceStable(p, func(i, j int) bool { return p[i].Order < p[j].Order })
}

// NormalizePrizes decodes a stored prizes document. Legacy documents keep
// special prizes as an object keyed by arbitrary ids; those are converted to
// an array sorted by key and tagged with PrizesVersion.
func NormalizePrizes(raw []byte) (Prizes, error) {
	var out Prizes
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		out.Version = PrizesVersion
		return out, nil
	}

	var doc struct {
		Version       int             `json:"version"`
		First         Prize           `json:"first"`
		Second        Prize           `json:"second"`
		Third         Prize           `json:"third"`
		SpecialPrizes json.RawMessage `json:"special_prizes"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return out, fmt.Errorf("decode prizes: %w", err)
	}
	out = Prizes{Version: PrizesVersion, First: doc.First, Second: doc.Second, Third: doc.Third}

	special := bytes.TrimSpace(doc.SpecialPrizes)
	switch {
	case len(special) == 0 || string(special) == "null":
	case special[0] == '[':
		if err := json.Unmarshal(special, &out.SpecialPrizes); err != nil {
			return out, fmt.Errorf("decode special prizes: %w", err)
		}
	case special[0] == '{':
		list, err := legacySpecialPrizes(special)
		if err != nil {
			return out, err
		}
		out.SpecialPrizes = list
	default:
		return out, fmt.Errorf("decode special prizes: unexpected shape")
	}
	return out, nil
}

// legacySpecialPrizes converts {"key": {...}} or {"key": "amount"} to a slice.
func legacySpecialPrizes(raw []byte) ([]SpecialPrize, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode legacy special prizes: %w", err)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	list := make([]SpecialPrize, 0, len(keys))
	for _, k := range keys {
		v := bytes.TrimSpace(m[k])
		var p SpecialPrize
		if len(v) > 0 && v[0] == '"' {
			if err := json.Unmarshal(v, &p.Amount); err != nil {
				return nil, fmt.Errorf("decode legacy special prize %q: %w", k, err)
			}
		} else if err := json.Unmarshal(v, &p); err != nil {
			return nil, fmt.Errorf("decode legacy special prize %q: %w", k, err)
		}
		if p.Title == "" {
			p.Title = k
		}
		list = append(list, p)
	}
	return list, nil
}
