package push_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/exo-addons/go-push-service/pkg/push"
)

func TestMask(t *testing.T) {
	t.Run("keeps only the requested tail", func(t *testing.T) {
		assert.Equal(t, "xxxxxxxxxxxxxxx", push.Mask("12345678901234567890", 0))
		assert.Equal(t, "xxxxxxxxxxxxx90", push.Mask("12345678901234567890", 2))
		assert.Equal(t, "xxxxxxxxxxx7890", push.Mask("12345678901234567890", 4))
		assert.Equal(t, "xxxxxxxxx567890", push.Mask("12345678901234567890", 6))
	})

	t.Run("short inputs pass through", func(t *testing.T) {
		assert.Equal(t, "", push.Mask("", 4))
		assert.Equal(t, "123456789", push.Mask("123456789", 20))
		assert.Equal(t, "abcd", push.Mask("abcd", 4))
	})
}
