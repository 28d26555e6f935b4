package session

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Persisted keys
const (
	KeyToken = "token"
	KeyUser  = "user"
)

var Keys = []string{KeyToken, KeyUser}

// Encode returns the values to store under KeyToken and KeyUser.
func (c Credentials) Encode() (map[string]string, error) {
	if c.Token == "" {
		return nil, errors.New("encoding session: empty token")
	}
	usr, err := json.Marshal(c.User)
	if err != nil {
		return nil, errors.Wrap(err, "encoding session user")
	}
	return map[string]string{KeyToken: c.Token, KeyUser: string(usr)}, nil
}

// DecodeCredentials rebuilds Credentials from the stored values; a missing key is absent from values.
func DecodeCredentials(values map[string]string) (Credentials, error) {
	token, hasToken := values[KeyToken]
	usr, hasUser := values[KeyUser]
	switch {
	case !hasToken && !hasUser:
		return Credentials{}, ErrNotFound
	case !hasToken || !hasUser || token == "":
		return Credentials{}, ErrIncomplete
	}

	creds := Credentials{Token: token}
	if err := json.Unmarshal([]byte(usr), &creds.User); err != nil {
		return Credentials{}, errors.Wrap(ErrIncomplete, "decoding session user: "+err.Error())
	}
	return creds, nil
}
