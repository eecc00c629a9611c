package auth

import (
	"strings"

	"github.com/trademate-dev/trademate/internal/session"
)

func credentials(username, password string) session.Credentials {
	return session.Credentials{Username: strings.TrimSpace(username), Password: password}
}

func profile(username, email, password string) session.Profile {
	return session.Profile{
		Username: strings.TrimSpace(username),
		Email:    strings.TrimSpace(email),
		Password: password,
	}
}
