package untis

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Credentials are the login of the Untis account.
type Credentials struct {
	Username string
	Password string
}

// CredentialProvider supplies credentials to the client on demand.
type CredentialProvider interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// StaticCredentials returns fixed credentials.
type StaticCredentials Credentials

func (s StaticCredentials) Credentials(context.Context) (Credentials, error) {
	return Credentials(s), nil
}

// EnvCredentials reads UNTIS_USERNAME and UNTIS_PASSWORD from the
// environment, after loading File (a .env file) if it exists. Variables
// already set in the environment win over the file.
type EnvCredentials struct {
	File string
}

func (e EnvCredentials) Credentials(context.Context) (Credentials, error) {
	if e.File != "" {
		if err := godotenv.Load(e.File); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Credentials{}, err
		}
	}
	c := Credentials{
		Username: os.Getenv("UNTIS_USERNAME"),
		Password: os.Getenv("UNTIS_PASSWORD"),
	}
	if c.Username == "" || c.Password == "" {
		return Credentials{}, errors.New("untis: UNTIS_USERNAME and UNTIS_PASSWORD must be set")
	}
	return c, nil
}
