// Package secrets keeps the IMAP password in the OS keychain.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"

	"jobpilot/internal/config"
)

const (
	// KeyringService groups the app's secrets in the OS keychain.
	KeyringService = "jobpilot"

	// PasswordEnv overrides the keychain, for headless hosts without one.
	PasswordEnv = "JOBPILOT_IMAP_PASSWORD"
)

var ErrNoPassword = errors.New("imap password not found (set it via POST /api/secrets/imap or " + PasswordEnv + ")")

func IMAPKeyringAccount(cfg config.Config) string {
	return fmt.Sprintf("jobpilot:imap:%s@%s", cfg.Email.Username, cfg.Email.IMAPHost)
}

// GetIMAPPassword reads the password from the environment, then the keychain.
func GetIMAPPassword(account string) (string, error) {
	if pw := os.Getenv(PasswordEnv); strings.TrimSpace(pw) != "" {
		return pw, nil
	}
	if strings.TrimSpace(account) == "" {
		return "", ErrNoPassword
	}
	pw, err := keyring.Get(KeyringService, account)
	if errors.Is(err, keyring.ErrNotFound) || (err == nil && strings.TrimSpace(pw) == "") {
		return "", ErrNoPassword
	}
	if err != nil {
		return "", fmt.Errorf("keyring get: %w", err)
	}
	return pw, nil
}

func SetIMAPPassword(account, password string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("password is empty")
	}
	return keyring.Set(KeyringService, account, password)
}

func DeleteIMAPPassword(account string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	err := keyring.Delete(KeyringService, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
