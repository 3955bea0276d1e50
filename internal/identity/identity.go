// Package identity derives the signed-in user's identity from the bearer
// token. The payload is decoded without signature verification: the remote
// API is the verifier, the console only has to tolerate malformed or stale
// tokens gracefully.
package identity

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/parishdesk/console/internal/errors"
)

// Identity is the read-only projection of the credential.
type Identity struct {
	Email           string
	Name            string
	Roles           RoleList
	ChurchID        int
	DefaultBranchID int
}

// HasRole reports whether the identity holds any of the given role tags.
func (id *Identity) HasRole(roles ...string) bool {
	for _, want := range roles {
		for _, have := range id.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// RoleList accepts a role claim shaped as either a single string or an
// array of strings; the server emits both.
type RoleList []string

func (r *RoleList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*r = nil
			return nil
		}
		*r = RoleList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*r = RoleList(many)
	return nil
}

// flexInt accepts an integer claim encoded as a number or a string.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		*f = flexInt(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

type tokenClaims struct {
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	Roles    RoleList `json:"role"`
	ChurchID flexInt  `json:"churchId"`
	BranchID flexInt  `json:"branchId"`
	jwt.RegisteredClaims
}

// Decode parses the token payload into an Identity. Any failure (garbage
// token, missing required claims, expired token) yields an InvalidToken
// error; callers treat that as "no valid session" and tear down, never
// crash.
func Decode(tokenString string) (*Identity, error) {
	claims := &tokenClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, errors.InvalidToken(err)
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, errors.InvalidToken(nil).WithDetails("reason", "token expired")
	}

	name := claims.Name
	if name == "" {
		name = claims.Subject
	}

	switch {
	case claims.Email == "":
		return nil, errors.InvalidToken(nil).WithDetails("missing", "email")
	case name == "":
		return nil, errors.InvalidToken(nil).WithDetails("missing", "sub")
	case len(claims.Roles) == 0:
		return nil, errors.InvalidToken(nil).WithDetails("missing", "role")
	case claims.ChurchID == 0:
		return nil, errors.InvalidToken(nil).WithDetails("missing", "churchId")
	}

	return &Identity{
		Email:           claims.Email,
		Name:            name,
		Roles:           claims.Roles,
		ChurchID:        int(claims.ChurchID),
		DefaultBranchID: int(claims.BranchID),
	}, nil
}
