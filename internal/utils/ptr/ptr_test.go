package ptr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surjbayarea/actionsync/internal/utils/ptr"
)

func TestTo(t *testing.T) {
	s := ptr.To("subscribed")
	require.NotNil(t, s)
	assert.Equal(t, "subscribed", *s)

	n := ptr.To(42)
	require.NotNil(t, n)
	assert.Equal(t, 42, *n)
}

func TestBool(t *testing.T) {
	b := ptr.Bool(false)
	require.NotNil(t, b)
	assert.False(t, *b)
}
