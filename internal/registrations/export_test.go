package registrations

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeQuotesEveryField(t *testing.T) {
	event := uuid.New()
	regs := twelve(event)
	for i := range regs {
		regs[i].HackathonTitle = `Hack "Paris", 2026`
	}
	out, err := Serialize(regs)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(string(out), "\n"), "\n")
	require.Len(t, lines, len(regs)+1)
	assert.Equal(t, `"Name","Email","Phone","Hackathon","Status","Registration Date"`, lines[0])
	assert.Equal(t, `"a","a@example.com","+1 555 0100","Hack ""Paris"", 2026","pending","3/4/2026"`, lines[1])
	assert.Equal(t, `"e","e@example.com","+1 555 0100","Hack ""Paris"", 2026","pending","3/4/2026"`, lines[5])
	for _, l := range lines {
		assert.True(t, strings.HasPrefix(l, `"`) && strings.HasSuffix(l, `"`))
	}
}

func TestSerializeEmpty(t *testing.T) {
	out, err := Serialize(nil)
	assert.ErrorIs(t, err, ErrNothingToExport)
	assert.Nil(t, out)
}

func TestFilename(t *testing.T) {
	now := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, "registrations-2026-10-17.csv", Filename(now, ""))
	assert.Equal(t, "registrations-cafe-hack-2026-2026-10-17.csv", Filename(now, "Café Hack 2026!"))
}
