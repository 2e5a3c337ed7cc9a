package session

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkujx.cn/library/internal/entity"
	"pkujx.cn/library/internal/modules/session/repository"
	"pkujx.cn/library/internal/testutil"
	"pkujx.cn/library/pkg/apperror"
)

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		message string
	}{
		{name: "empty header", header: "", message: MsgNoCookie},
		{name: "blank header", header: "   ", message: MsgNoCookie},
		{name: "missing key", header: "theme=dark; lang=en", message: MsgInvalidCookie},
		{name: "empty value", header: "library_session=", message: MsgInvalidCookie},
		{name: "prefix is not a match", header: "xlibrary_session=abc", message: MsgInvalidCookie},
		{name: "single pair", header: "library_session=abc", want: "abc"},
		{name: "among others", header: "theme=dark; library_session=abc; lang=en", want: "abc"},
		{name: "first match wins", header: "library_session=first; library_session=second", want: "first"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractToken(tt.header, "library_session")
			if tt.message != "" {
				require.Error(t, err)
				assert.Equal(t, tt.message, apperror.Message(err))
				assert.Equal(t, http.StatusUnauthorized, apperror.Status(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newService(t *testing.T, now func() time.Time) SessionService {
	db := testutil.NewDB(t)
	return NewSessionServiceWithClock(repository.NewSessionRepository(db), testutil.AuthConfig(), now)
}

func TestIssueAndVerify(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newService(t, func() time.Time { return clock })

	user := &entity.User{ID: 7, Email: "a@qq.com", Username: "alice", Role: entity.RoleStudent}
	sess, err := svc.Issue(ctx, user)
	require.NoError(t, err)
	assert.Len(t, sess.ID, 21)
	assert.Equal(t, clock.Add(24*time.Hour).UnixMilli(), sess.Expiry)

	header := "library_session=" + sess.ID

	v := svc.VerifyUser(ctx, header)
	require.True(t, v.Authorized)
	assert.Equal(t, uint(7), v.UserID)
	assert.Equal(t, "alice", v.Username)
	assert.Equal(t, entity.RoleStudent, v.Role)
	assert.NoError(t, v.Err())

	v = svc.VerifyAdmin(ctx, header)
	assert.False(t, v.Authorized)
	assert.Equal(t, apperror.KindForbidden, v.Kind)
	assert.Equal(t, http.StatusForbidden, apperror.Status(v.Err()))

	v = svc.VerifyUser(ctx, "library_session=unknown")
	assert.False(t, v.Authorized)
	assert.Equal(t, MsgInvalidSession, v.Message)
	assert.Equal(t, http.StatusUnauthorized, apperror.Status(v.Err()))
}

func TestVerifyAdmin(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, time.Now)

	sess, err := svc.Issue(ctx, &entity.User{ID: 1, Email: "admin@pkujx.cn", Username: "admin", Role: entity.RoleAdmin})
	require.NoError(t, err)

	v := svc.VerifyAdmin(ctx, "library_session="+sess.ID)
	assert.True(t, v.Authorized)
	assert.Equal(t, entity.RoleAdmin, v.Role)

	v = svc.VerifyAdmin(ctx, "")
	assert.False(t, v.Authorized)
	assert.Equal(t, apperror.KindUnauthenticated, v.Kind)
	assert.Equal(t, MsgNoCookie, v.Message)
}

func TestExpiredSessionIsRejected(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newService(t, func() time.Time { return clock })

	sess, err := svc.Issue(ctx, &entity.User{ID: 3, Email: "b@qq.com", Username: "bob", Role: entity.RoleStudent})
	require.NoError(t, err)

	// Exactly at expiry the session is no longer valid.
	clock = clock.Add(24 * time.Hour)
	v := svc.VerifyUser(ctx, "library_session="+sess.ID)
	assert.False(t, v.Authorized)
	assert.Equal(t, MsgInvalidSession, v.Message)

	purged, err := svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, time.Now)
	user := &entity.User{ID: 9, Email: "c@qq.com", Username: "carol", Role: entity.RoleTeacher}

	first, err := svc.Issue(ctx, user)
	require.NoError(t, err)
	second, err := svc.Issue(ctx, user)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, "library_session="+first.ID))
	assert.False(t, svc.VerifyUser(ctx, "library_session="+first.ID).Authorized)
	assert.True(t, svc.VerifyUser(ctx, "library_session="+second.ID).Authorized)

	require.NoError(t, svc.RevokeUser(ctx, user.ID))
	assert.False(t, svc.VerifyUser(ctx, "library_session="+second.ID).Authorized)

	// Missing cookie is not an error on logout.
	assert.NoError(t, svc.Revoke(ctx, ""))
}

func TestCookie(t *testing.T) {
	svc := newService(t, time.Now)
	c := svc.Cookie(&entity.Session{ID: "abc"})
	assert.Equal(t, "library_session", c.Name)
	assert.Equal(t, "abc", c.Value)
	assert.Equal(t, 86400, c.MaxAge)
	assert.True(t, c.HttpOnly)

	cleared := svc.ClearCookie()
	assert.Equal(t, -1, cleared.MaxAge)
	assert.Empty(t, cleared.Value)
}
