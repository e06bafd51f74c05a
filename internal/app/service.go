package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"onboarding/api/internal/auth"
	"onboarding/api/internal/authpw"
	"onboarding/api/internal/blob"
	"onboarding/api/internal/catalog"
	"onboarding/api/internal/config"
	"onboarding/api/internal/export"
	"onboarding/api/internal/metrics"
	"onboarding/api/internal/profile"
	"onboarding/api/internal/rbac"
	"onboarding/api/internal/search"
	"onboarding/api/internal/store"
	"onboarding/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	Email        string
	UserName     string
	Role         string
	JTI          string
	ExpiresAt    time.Time
}

type sessionStore interface {
	SaveRefreshSession(context.Context, string, string, time.Time) error
	LookupRefreshSession(context.Context, string) (store.User, error)
	RevokeRefreshSession(context.Context, string) error
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)
}

// DataStore is the persistence the service needs. The postgres and sqlite
// stores both satisfy it.
type DataStore interface {
	sessionStore
	profile.Repository
	CreateUser(context.Context, store.User) error
	GetUserByEmail(context.Context, string) (store.User, error)
	GetUserByID(context.Context, string) (store.User, error)
	CountUsers(context.Context) (int, error)
	UpdateUserRole(context.Context, string, string) error
	ListProfileDocuments(context.Context, string) ([]store.ProfileDocument, error)
	GetProfileDocument(context.Context, string, string) (store.ProfileDocument, error)
	InsertProfileDocument(context.Context, store.ProfileDocument) error
	DeleteProfileDocument(context.Context, string, string) error
	Ping(ctx context.Context) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the optional collaborators of a Service. Sessions defaults to
// the data store, Blobs to an in-memory store.
type Deps struct {
	Catalog  *catalog.Registry
	Sessions sessionStore
	Blobs    blob.Store
	Search   *search.Service
	Export   *export.Service
	Metrics  *metrics.Metrics
}

type Service struct {
	cfg       config.Config
	store     DataStore
	sessions  sessionStore
	signer    *auth.Signer
	passwords *authpw.Service
	catalog   *catalog.Registry
	blobs     blob.Store
	search    *search.Service
	exporter  *export.Service
	metrics   *metrics.Metrics
	now       func() time.Time
}

func New(cfg config.Config, data DataStore, deps Deps) *Service {
	s := &Service{
		cfg:       cfg,
		store:     data,
		sessions:  deps.Sessions,
		signer:    auth.NewSigner(cfg.JWTSecret),
		passwords: authpw.NewService(data),
		catalog:   deps.Catalog,
		blobs:     deps.Blobs,
		search:    deps.Search,
		exporter:  deps.Export,
		metrics:   deps.Metrics,
		now:       time.Now,
	}
	if s.sessions == nil {
		s.sessions = data
	}
	if s.catalog == nil {
		s.catalog = catalog.Installed()
	}
	if s.blobs == nil {
		s.blobs = blob.NewMemoryStore(cfg.Minio.Bucket)
	}
	if s.search == nil {
		s.search = search.NewService(nil)
		if s.catalog != nil {
			schemas := make([]*catalog.Schema, 0)
			for _, version := range s.catalog.Versions() {
				schema, _ := s.catalog.Exact(version)
				schemas = append(schemas, schema)
			}
			s.search.IndexSchemas(schemas)
		}
	}
	if s.exporter == nil {
		s.exporter = export.NewService(export.PDFRenderer{ExecPath: cfg.ChromePath})
	}
	return s
}

func (s *Service) SignUp(ctx context.Context, req authpw.SignUpRequest) (Session, error) {
	user, err := s.passwords.SignUp(ctx, req)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) SignIn(ctx context.Context, req authpw.SignInRequest) (Session, error) {
	user, err := s.passwords.SignIn(ctx, req)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return Session{}, auth.ErrInvalidToken
	}
	tokenHash := auth.HashToken(refreshToken)
	owner, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	// The session store may only know the user id; reload for the current role.
	user, err := s.store.GetUserByID(ctx, owner.ID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := s.signer.Issue(auth.Claims{
		Sub:   user.ID,
		Email: user.Email,
		Name:  user.DisplayName,
		Role:  user.Role,
		JTI:   jti,
		Exp:   expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, now.Add(s.cfg.RefreshTTL)); err != nil {
		return Session{}, fmt.Errorf("save refresh session: %w", err)
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		Email:        user.Email,
		UserName:     user.DisplayName,
		Role:         string(rbac.Normalize(user.Role)),
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.sessions.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, auth.ErrInvalidToken
		}
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		UserName:  user.DisplayName,
		Role:      string(rbac.Normalize(user.Role)),
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.sessions.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

func (s *Service) Can(role string, action rbac.Action) bool {
	return rbac.Can(rbac.Normalize(role), action)
}

// Checks pings the database and, when sessions live elsewhere, the
// session store. A nil error means the dependency is healthy.
func (s *Service) Checks(ctx context.Context) map[string]error {
	checks := map[string]error{"database": s.store.Ping(ctx)}
	if p, ok := s.sessions.(pinger); ok && s.sessions != sessionStore(s.store) {
		checks["sessions"] = p.Ping(ctx)
	}
	return checks
}

// SetUserRole changes a user's role. Only the known roles are accepted.
func (s *Service) SetUserRole(ctx context.Context, userID, role string) error {
	normalized := rbac.Role(strings.ToLower(strings.TrimSpace(role)))
	if rbac.Normalize(string(normalized)) != normalized {
		return validationError("role must be member, reviewer or admin", map[string]any{"role": role})
	}
	return s.store.UpdateUserRole(ctx, userID, string(normalized))
}
