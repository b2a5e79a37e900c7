package network

import (
	"errors"

	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/pkg/utils"
)

// OpenCredential decrypts the stored tokens of acc. An account without an
// access token yields a KindNoCredential error. An unusable key is returned
// as utils.ErrInvalidKey and is never attributed to the account.
func OpenCredential(acc *models.SocialAccount, key []byte) (Credential, error) {
	n := Network(acc.Platform)
	if !acc.HasCredential() {
		return Credential{}, Errorf(KindNoCredential, n, "open_credential", "account %d has no stored credential", acc.ID)
	}

	access, err := utils.Open(key, acc.AccessToken)
	if err != nil {
		return Credential{}, openError(n, err)
	}

	var refresh string
	if acc.RefreshToken != "" {
		refresh, err = utils.Open(key, acc.RefreshToken)
		if err != nil {
			return Credential{}, openError(n, err)
		}
	}

	return Credential{
		AccountID:    acc.AccountID,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    acc.TokenExpiresAt,
	}, nil
}

func openError(n Network, err error) error {
	if errors.Is(err, utils.ErrInvalidKey) {
		return err
	}
	return wrap(KindNoCredential, n, "open_credential", err)
}

// SealCredential encrypts cred into the token fields of acc.
func SealCredential(acc *models.SocialAccount, cred Credential, key []byte) error {
	access, err := utils.Seal(key, cred.AccessToken)
	if err != nil {
		return err
	}

	var refresh string
	if cred.RefreshToken != "" {
		refresh, err = utils.Seal(key, cred.RefreshToken)
		if err != nil {
			return err
		}
	}

	acc.AccessToken = access
	acc.RefreshToken = refresh
	acc.TokenExpiresAt = cred.ExpiresAt
	return nil
}
