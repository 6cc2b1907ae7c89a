package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Slug   string `validate:"slug"`
	Phone  string `validate:"phone"`
	Status string `validate:"regstatus"`
	Event  string `validate:"eventstatus"`
}

func TestCustomTags(t *testing.T) {
	v := New()

	ok := sample{Slug: "hack-2026", Phone: "+1 (555) 123-4567", Status: "confirmed", Event: "upcoming"}
	assert.NoError(t, v.Struct(ok))

	assert.Error(t, v.Struct(sample{Slug: "Bad Slug", Status: "pending", Event: "draft"}))
	assert.Error(t, v.Struct(sample{Phone: "call me", Status: "pending", Event: "draft"}))
	assert.Error(t, v.Struct(sample{Status: "maybe", Event: "draft"}))
	assert.Error(t, v.Struct(sample{Status: "pending", Event: "cancelled"}))
}
