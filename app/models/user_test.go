package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserIssueAPIKey(t *testing.T) {
	u := &User{ID: 1}

	key, err := u.IssueAPIKey()
	require.NoError(t, err)
	require.NotEmpty(t, key)

	assert.True(t, strings.HasPrefix(key, "fcl_"))
	assert.NotEmpty(t, u.APIKeyHash)
	assert.NotEmpty(t, u.APIKeyPrefix)
	assert.True(t, u.HasActiveAPIKey())
	assert.Equal(t, HashAPIKey(key), u.APIKeyHash)
}

func TestUserIssueAPIKeyIsUnique(t *testing.T) {
	u := &User{ID: 1}

	first, err := u.IssueAPIKey()
	require.NoError(t, err)
	second, err := u.IssueAPIKey()
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, HashAPIKey(second), u.APIKeyHash)
}

func TestHashAPIKeyTrimsWhitespace(t *testing.T) {
	assert.Equal(t, HashAPIKey("fcl_abc"), HashAPIKey("  fcl_abc \n"))
}

func TestCheckPassword(t *testing.T) {
	u, err := CreateUser("Test User", "test@example.com", "secret-password")
	require.NoError(t, err)

	assert.True(t, u.CheckPassword("secret-password"))
	assert.False(t, u.CheckPassword("wrong"))
}
