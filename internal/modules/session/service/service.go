package session

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"pkujx.cn/library/internal/config"
	"pkujx.cn/library/internal/entity"
	"pkujx.cn/library/internal/modules/session/repository"
	"pkujx.cn/library/pkg/apperror"
)

const (
	MsgNoCookie       = "Unauthorized: No cookie provided"
	MsgInvalidCookie  = "Unauthorized: Invalid session cookie format"
	MsgInvalidSession = "Unauthorized: Invalid or expired session"
	MsgForbidden      = "Forbidden: Insufficient privileges"
	MsgInternal       = "Internal error during verification"
)

// Verdict is the outcome of an authentication check. Failures carry a kind
// from which callers derive the HTTP status.
type Verdict struct {
	Authorized bool
	UserID     uint
	Email      string
	Username   string
	Role       string
	SessionID  string

	Kind    apperror.Kind
	Message string
}

// Err converts a failed verdict into an application error.
func (v Verdict) Err() error {
	if v.Authorized {
		return nil
	}
	return apperror.New(v.Kind, v.Message)
}

func deny(kind apperror.Kind, message string) Verdict {
	return Verdict{Kind: kind, Message: message}
}

// Guard resolves the caller's identity from a raw Cookie header.
type Guard interface {
	VerifyUser(ctx context.Context, cookieHeader string) Verdict
	VerifyAdmin(ctx context.Context, cookieHeader string) Verdict
}

type SessionService interface {
	Guard
	Issue(ctx context.Context, user *entity.User) (*entity.Session, error)
	Revoke(ctx context.Context, cookieHeader string) error
	RevokeUser(ctx context.Context, userID uint) error
	PurgeExpired(ctx context.Context) (int64, error)
	Cookie(session *entity.Session) *http.Cookie
	ClearCookie() *http.Cookie
}

type sessionService struct {
	repo repository.SessionRepository
	cfg  config.AuthConfig
	now  func() time.Time
}

func NewSessionService(repo repository.SessionRepository, cfg config.AuthConfig) SessionService {
	return &sessionService{repo: repo, cfg: cfg, now: time.Now}
}

// NewSessionServiceWithClock is NewSessionService with an injectable clock.
func NewSessionServiceWithClock(repo repository.SessionRepository, cfg config.AuthConfig, now func() time.Time) SessionService {
	return &sessionService{repo: repo, cfg: cfg, now: now}
}

// ExtractToken scans semicolon-separated cookie pairs for an exact name match.
// The first match wins.
func ExtractToken(cookieHeader, name string) (string, error) {
	if strings.TrimSpace(cookieHeader) == "" {
		return "", apperror.Unauthorized(MsgNoCookie)
	}

	for _, pair := range strings.Split(cookieHeader, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || key != name {
			continue
		}
		if value == "" {
			break
		}
		return value, nil
	}

	return "", apperror.Unauthorized(MsgInvalidCookie)
}

func (s *sessionService) VerifyUser(ctx context.Context, cookieHeader string) Verdict {
	token, err := ExtractToken(cookieHeader, s.cfg.CookieName)
	if err != nil {
		return deny(apperror.KindUnauthenticated, apperror.Message(err))
	}

	sess, err := s.repo.FindActive(ctx, token, s.now().UnixMilli())
	if err != nil {
		return deny(apperror.KindInternal, MsgInternal)
	}
	if sess == nil {
		return deny(apperror.KindUnauthenticated, MsgInvalidSession)
	}

	return Verdict{
		Authorized: true,
		UserID:     sess.UserID,
		Email:      sess.Email,
		Username:   sess.Username,
		Role:       sess.Role,
		SessionID:  sess.ID,
	}
}

func (s *sessionService) VerifyAdmin(ctx context.Context, cookieHeader string) Verdict {
	v := s.VerifyUser(ctx, cookieHeader)
	if !v.Authorized {
		return v
	}
	if v.Role != entity.RoleAdmin {
		return deny(apperror.KindForbidden, MsgForbidden)
	}
	return v
}

func (s *sessionService) Issue(ctx context.Context, user *entity.User) (*entity.Session, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	sess := &entity.Session{
		ID:       id,
		UserID:   user.ID,
		Email:    user.Email,
		Username: user.Username,
		Role:     user.Role,
		Expiry:   s.now().Add(s.cfg.SessionTTL).UnixMilli(),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Revoke deletes the session named by the cookie header, if any.
func (s *sessionService) Revoke(ctx context.Context, cookieHeader string) error {
	token, err := ExtractToken(cookieHeader, s.cfg.CookieName)
	if err != nil {
		return nil
	}
	return s.repo.Delete(ctx, token)
}

func (s *sessionService) RevokeUser(ctx context.Context, userID uint) error {
	return s.repo.DeleteByUser(ctx, userID)
}

func (s *sessionService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repo.PurgeExpired(ctx, s.now().UnixMilli())
}

func (s *sessionService) Cookie(sess *entity.Session) *http.Cookie {
	return &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    sess.ID,
		Path:     "/",
		MaxAge:   int(s.cfg.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: s.cfg.SameSite,
	}
}

func (s *sessionService) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: s.cfg.SameSite,
	}
}
