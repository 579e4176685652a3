package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("Secret123")
	require.NoError(t, err)
	require.NotEqual(t, "Secret123", hash)
	require.True(t, CheckPassword("Secret123", hash))
	require.False(t, CheckPassword("secret123", hash))
}

func TestCheckPasswordPolicy(t *testing.T) {
	testCases := []struct {
		password string
		ok       bool
	}{
		{"Secret123", true},
		{"Short1A", false},
		{"alllower123", false},
		{"ALLUPPER123", false},
		{"NoDigitsHere", false},
	}
	for _, tc := range testCases {
		err := CheckPasswordPolicy(tc.password)
		if (err == nil) != tc.ok {
			t.Errorf("CheckPasswordPolicy(%q) error = %v, want ok=%v", tc.password, err, tc.ok)
		}
	}
}

func TestValidateUsernameAndEmail(t *testing.T) {
	require.NoError(t, ValidateUsername("juan_23"))
	require.Error(t, ValidateUsername("ab"))
	require.Error(t, ValidateUsername("has space"))

	require.NoError(t, ValidateEmail("a@b.do"))
	require.Error(t, ValidateEmail("nope"))
	require.Error(t, ValidateEmail("@b.do"))
	require.Error(t, ValidateEmail("a@bdo"))

	require.Equal(t, "juan@mail.do", NormalizeEmail("  Juan@Mail.DO "))
}

func TestIssuePairAndParse(t *testing.T) {
	iss := NewIssuer("test-secret", "klkchan", time.Minute, time.Hour)
	pair, err := iss.IssuePair(42, "juan", []string{"user", "mod"})
	require.NoError(t, err)
	require.Equal(t, "bearer", pair.TokenType)
	require.EqualValues(t, 60, pair.ExpiresIn)

	claims, err := iss.Parse(pair.AccessToken, TypeAccess)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	require.EqualValues(t, 42, id)
	require.Equal(t, []string{"user", "mod"}, claims.Roles)
	require.NotEmpty(t, claims.ID)

	// an access token is not a refresh token
	_, err = iss.Parse(pair.AccessToken, TypeRefresh)
	require.ErrorIs(t, err, ErrWrongType)

	refresh, err := iss.Parse(pair.RefreshToken, TypeRefresh)
	require.NoError(t, err)
	require.NotEqual(t, claims.ID, refresh.ID)
}

func TestParseRejectsForeignTokens(t *testing.T) {
	iss := NewIssuer("test-secret", "klkchan", time.Minute, time.Hour)
	other := NewIssuer("other-secret", "klkchan", time.Minute, time.Hour)
	pair, err := other.IssuePair(1, "x", nil)
	require.NoError(t, err)

	_, err = iss.Parse(pair.AccessToken, TypeAccess)
	require.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer := NewIssuer("test-secret", "someone-else", time.Minute, time.Hour)
	pair, err = wrongIssuer.IssuePair(1, "x", nil)
	require.NoError(t, err)
	_, err = iss.Parse(pair.AccessToken, TypeAccess)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = iss.Parse("", TypeAccess)
	require.ErrorIs(t, err, ErrInvalidToken)
	_, err = iss.Parse("not.a.jwt", TypeAccess)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseExpired(t *testing.T) {
	iss := NewIssuer("test-secret", "klkchan", time.Minute, time.Hour)
	issuedAt := time.Now().Add(-2 * time.Hour)
	iss.Now = func() time.Time { return issuedAt }
	pair, err := iss.IssuePair(7, "old", nil)
	require.NoError(t, err)

	iss.Now = time.Now
	_, err = iss.Parse(pair.AccessToken, TypeAccess)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestRevoke(t *testing.T) {
	iss := NewIssuer("test-secret", "klkchan", time.Minute, time.Hour)
	pair, err := iss.IssuePair(3, "u", nil)
	require.NoError(t, err)

	claims, err := iss.Parse(pair.RefreshToken, TypeRefresh)
	require.NoError(t, err)
	iss.Revoke(claims)

	_, err = iss.Parse(pair.RefreshToken, TypeRefresh)
	require.ErrorIs(t, err, ErrTokenRevoked)
	require.Equal(t, 1, iss.Revoked().Len())
}

func TestRevocationListEvictsExpired(t *testing.T) {
	r := NewRevocationList()
	r.Revoke("gone", time.Now().Add(-time.Second))
	r.Revoke("live", time.Now().Add(time.Hour))
	require.False(t, r.IsRevoked("gone"))
	require.True(t, r.IsRevoked("live"))
	require.Equal(t, 1, r.Len())
}
