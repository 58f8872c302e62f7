package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"jobpilot/internal/config"
)

func TestIMAPPasswordRoundTrip(t *testing.T) {
	keyring.MockInit()
	t.Setenv(PasswordEnv, "")

	cfg := config.Defaults()
	cfg.Email.Username = "sam@example.com"
	cfg.Email.IMAPHost = "imap.example.com"
	account := IMAPKeyringAccount(cfg)
	assert.Equal(t, "jobpilot:imap:sam@example.com@imap.example.com", account)

	_, err := GetIMAPPassword(account)
	assert.ErrorIs(t, err, ErrNoPassword)

	require.NoError(t, SetIMAPPassword(account, "app-password"))
	pw, err := GetIMAPPassword(account)
	require.NoError(t, err)
	assert.Equal(t, "app-password", pw)

	require.NoError(t, DeleteIMAPPassword(account))
	require.NoError(t, DeleteIMAPPassword(account), "deleting twice is fine")
	_, err = GetIMAPPassword(account)
	assert.ErrorIs(t, err, ErrNoPassword)
}

func TestEnvOverridesKeyring(t *testing.T) {
	keyring.MockInit()
	t.Setenv(PasswordEnv, "from-env")
	pw, err := GetIMAPPassword("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", pw)
}

func TestSetValidates(t *testing.T) {
	keyring.MockInit()
	assert.Error(t, SetIMAPPassword("", "pw"))
	assert.Error(t, SetIMAPPassword("acct", " "))
	assert.Error(t, DeleteIMAPPassword(""))
}
