package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequentialIDs(t *testing.T) {
	var ids SequentialIDs

	assert.Equal(t, "00000000-0000-0000-0000-000000000001", ids.Next().String())
	assert.Equal(t, "00000000-0000-0000-0000-000000000002", ids.Next().String())

	for i := 0; i < 254; i++ {
		ids.Next()
	}
	assert.Equal(t, "00000000-0000-0000-0000-000000000101", ids.Next().String())
}
