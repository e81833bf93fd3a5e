package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnlock_CorrectPassphraseOpensGate(t *testing.T) {
	s := New("hunter2")
	assert.True(t, s.Unlock("hunter2"))
	assert.True(t, s.Admitted())
	assert.Empty(t, s.Message())
}

func TestUnlock_WrongPassphraseLeavesGateClosed(t *testing.T) {
	s := New("hunter2")
	assert.False(t, s.Unlock("nope"))
	assert.False(t, s.Admitted())
	assert.NotEmpty(t, s.Message())

	// No lockout: the next correct attempt succeeds.
	assert.True(t, s.Unlock("hunter2"))
	assert.True(t, s.Admitted())
}

func TestUnlock_EmptyExpectedNeverAdmitsViaUnlock(t *testing.T) {
	s := New("")
	assert.False(t, s.Unlock(""))
	assert.False(t, s.Admitted())
}

func TestLogout_ClearsRoleAndAdmission(t *testing.T) {
	s := New("hunter2")
	s.Unlock("hunter2")
	s.SetRole("admin")
	assert.Equal(t, "admin", s.Role())

	s.Logout()
	assert.False(t, s.Admitted())
	assert.Empty(t, s.Role())
	assert.Empty(t, s.Message())
}
