package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInTestModeFollowsEnv(t *testing.T) {
	t.Setenv(TestModeEnv, "1")
	assert.True(t, InTestMode())

	t.Setenv(TestModeEnv, "0")
	assert.False(t, InTestMode())

	t.Setenv(TestModeEnv, "")
	assert.False(t, InTestMode())
}
