package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mintToken signs claims with a throwaway key; Decode never verifies the
// signature, only the payload matters.
func mintToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func baseClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"email":    "a@b.com",
		"sub":      "Alice Smith",
		"role":     "Admin",
		"churchId": "3",
		"branchId": 2,
		"exp":      time.Now().Add(time.Hour).Unix(),
	}
}

func TestDecode_Valid(t *testing.T) {
	id, err := Decode(mintToken(t, baseClaims()))
	require.NoError(t, err)

	assert.Equal(t, "a@b.com", id.Email)
	assert.Equal(t, "Alice Smith", id.Name)
	assert.Equal(t, RoleList{"Admin"}, id.Roles)
	assert.Equal(t, 3, id.ChurchID)
	assert.Equal(t, 2, id.DefaultBranchID)
}

func TestDecode_NamePreferredOverSubject(t *testing.T) {
	claims := baseClaims()
	claims["name"] = "Pastor Alice"
	id, err := Decode(mintToken(t, claims))
	require.NoError(t, err)
	assert.Equal(t, "Pastor Alice", id.Name)
}

func TestDecode_ChurchIDShapes(t *testing.T) {
	tests := []struct {
		name     string
		churchID interface{}
		want     int
	}{
		{"string", "42", 42},
		{"number", 42, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := baseClaims()
			claims["churchId"] = tt.churchID
			id, err := Decode(mintToken(t, claims))
			require.NoError(t, err)
			assert.Equal(t, tt.want, id.ChurchID)
		})
	}
}

func TestDecode_RoleShapes(t *testing.T) {
	tests := []struct {
		name string
		role interface{}
		want RoleList
	}{
		{"single string", "Admin", RoleList{"Admin"}},
		{"array", []string{"Admin", "Treasurer"}, RoleList{"Admin", "Treasurer"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := baseClaims()
			claims["role"] = tt.role
			id, err := Decode(mintToken(t, claims))
			require.NoError(t, err)
			assert.Equal(t, tt.want, id.Roles)
		})
	}
}

func TestDecode_Invalid(t *testing.T) {
	expired := baseClaims()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()

	noEmail := baseClaims()
	delete(noEmail, "email")

	noName := baseClaims()
	delete(noName, "sub")

	noRole := baseClaims()
	delete(noRole, "role")

	noChurch := baseClaims()
	delete(noChurch, "churchId")

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.token"},
		{"empty", ""},
		{"expired", mintToken(t, expired)},
		{"missing email", mintToken(t, noEmail)},
		{"missing subject", mintToken(t, noName)},
		{"missing role", mintToken(t, noRole)},
		{"missing church id", mintToken(t, noChurch)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := Decode(tt.token)
			assert.Error(t, err)
			assert.Nil(t, id)
		})
	}
}

func TestIdentity_HasRole(t *testing.T) {
	tests := []struct {
		name  string
		roles RoleList
		check []string
		want  bool
	}{
		{"single role match", RoleList{"Admin"}, []string{"Admin"}, true},
		{"single role mismatch", RoleList{"Admin"}, []string{"Treasurer"}, false},
		{"array match", RoleList{"Admin", "Treasurer"}, []string{"Treasurer"}, true},
		{"any-of semantics", RoleList{"Usher"}, []string{"Admin", "Usher"}, true},
		{"no roles", nil, []string{"Admin"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := &Identity{Roles: tt.roles}
			if got := id.HasRole(tt.check...); got != tt.want {
				t.Errorf("HasRole(%v) = %v, want %v", tt.check, got, tt.want)
			}
		})
	}
}

func TestRoleList_NormalizesAcrossShapes(t *testing.T) {
	// The same authorization check must answer identically whether the
	// server sent one role or a list.
	single, err := Decode(mintToken(t, baseClaims()))
	require.NoError(t, err)

	claims := baseClaims()
	claims["role"] = []string{"Admin", "Treasurer"}
	many, err := Decode(mintToken(t, claims))
	require.NoError(t, err)

	assert.True(t, single.HasRole("Admin"))
	assert.True(t, many.HasRole("Admin"))
	assert.False(t, single.HasRole("Usher"))
	assert.False(t, many.HasRole("Usher"))
}
