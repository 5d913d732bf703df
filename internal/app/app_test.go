package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloseWithoutClients(t *testing.T) {
	assert.NoError(t, (&App{}).Close())
}
