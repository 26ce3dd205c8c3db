package backend

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/ledhal/internal/backend/dummy"
	"github.com/coreman2200/ledhal/internal/hal"
)

func TestRegisterAll(t *testing.T) {
	l := hal.NewLoader(zerolog.Nop())
	require.NoError(t, RegisterAll(l))
	assert.Equal(t, []string{"console", "dummy", "nrz", "spidev", "ws"}, l.Families())

	assert.ErrorIs(t, RegisterAll(l, dummy.New()), hal.ErrDuplicateFamily)
}
