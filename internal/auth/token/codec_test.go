package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "tenderdesk/pkg/domain"
	dErrors "tenderdesk/pkg/domain-errors"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestCodec(t *testing.T, opts ...Option) *Codec {
	t.Helper()
	codec, err := NewCodec(testSecret, "tenderdesk", "tenderdesk-api", opts...)
	require.NoError(t, err)
	return codec
}

func TestNewCodec_RejectsWeakSecret(t *testing.T) {
	_, err := NewCodec("short", "tenderdesk", "tenderdesk-api")
	require.Error(t, err)

	_, err = NewCodec(strings.Repeat("x", MinSecretBytes-1), "tenderdesk", "tenderdesk-api")
	require.Error(t, err)

	_, err = NewCodec(strings.Repeat("x", MinSecretBytes), "tenderdesk", "tenderdesk-api")
	require.NoError(t, err)
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	codec := newTestCodec(t)
	userID := id.NewUserID()

	tok, err := codec.Issue(userID, "user", time.Hour)
	require.NoError(t, err)

	claims, err := codec.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "user", claims.Role)
	assert.NotEmpty(t, claims.ID, "jti must be set")
}

func TestIssue_DistinctTokensPerLogin(t *testing.T) {
	codec := newTestCodec(t)
	userID := id.NewUserID()

	first, err := codec.Issue(userID, "user", time.Hour)
	require.NoError(t, err)
	second, err := codec.Issue(userID, "user", time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestVerify_UniformFailure(t *testing.T) {
	codec := newTestCodec(t)
	userID := id.NewUserID()

	valid, err := codec.Issue(userID, "user", time.Hour)
	require.NoError(t, err)

	// Expired token: clock advanced past the TTL.
	late := newTestCodec(t, WithClock(func() time.Time { return time.Now().Add(2 * time.Hour) }))

	// Tampered token: flip a character in the signature.
	tampered := valid[:len(valid)-2] + "zz"

	// Token signed with a different secret.
	other, err := NewCodec(strings.Repeat("y", MinSecretBytes), "tenderdesk", "tenderdesk-api")
	require.NoError(t, err)
	foreign, err := other.Issue(userID, "user", time.Hour)
	require.NoError(t, err)

	cases := map[string]func() error{
		"expired": func() error {
			_, err := late.Verify(valid)
			return err
		},
		"tampered": func() error {
			_, err := codec.Verify(tampered)
			return err
		},
		"wrong key": func() error {
			_, err := codec.Verify(foreign)
			return err
		},
		"garbage": func() error {
			_, err := codec.Verify("not-a-token")
			return err
		},
	}

	var messages []string
	for name, fn := range cases {
		err := fn()
		require.Error(t, err, name)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized), name)
		messages = append(messages, err.Error())
	}

	// All failure modes must be textually identical to the caller.
	for _, msg := range messages {
		assert.Equal(t, messages[0], msg)
	}
}
