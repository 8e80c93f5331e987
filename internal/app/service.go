package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"waypost/internal/auth"
	"waypost/internal/config"
	"waypost/internal/directory"
	"waypost/internal/search"
	"waypost/internal/util"
)

// Session is an authenticated admin session backed by a signed token whose
// JTI is registered server-side, so logout and expiry actually revoke it.
type Session struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

// Site is everything the public page renders.
type Site struct {
	Settings   directory.Settings
	Categories []directory.Category
}

type contentStore interface {
	GetSettings(context.Context) (directory.Settings, error)
	GetCategories(context.Context) ([]directory.Category, error)
	ReplaceSettings(context.Context, directory.Settings) error
	ReplaceCategories(context.Context, []directory.Category) error
	ImportSnapshot(context.Context, directory.Snapshot) error
	ExportSnapshot(context.Context) (directory.Snapshot, error)
	Ping(context.Context) error
}

type sessionStore interface {
	SaveAdminSession(ctx context.Context, tokenHash string, expiresAt time.Time) error
	LookupAdminSession(ctx context.Context, tokenHash string) (bool, error)
	RevokeAdminSession(ctx context.Context, tokenHash string) error
}

type linkSearcher interface {
	Search(q search.Query) search.Response
	Reindex(ctx context.Context)
}

type snapshotArchiver interface {
	ArchiveSnapshot(ctx context.Context, snapshot directory.Snapshot, reason string) (string, error)
}

type Service struct {
	cfg      config.Config
	store    contentStore
	sessions sessionStore
	search   linkSearcher
	archiver snapshotArchiver
}

// New wires the service. store and sessions may be nil when the storage
// binding is absent: requests then fail with a descriptive configuration
// error instead of the process refusing to start.
func New(cfg config.Config, store contentStore, sessions sessionStore) *Service {
	return &Service{
		cfg:      cfg,
		store:    store,
		sessions: sessions,
	}
}

// WithSearch attaches the optional link search backend.
func (s *Service) WithSearch(search linkSearcher) *Service {
	s.search = search
	return s
}

// WithArchiver attaches optional object storage for pre-import snapshots.
func (s *Service) WithArchiver(archiver snapshotArchiver) *Service {
	s.archiver = archiver
	return s
}

var errStoreMissing = domainError(
	http.StatusInternalServerError,
	"CONFIG_ERROR",
	"Configuration Error: storage binding missing, set DATABASE_URL",
	nil,
)

func (s *Service) contentStore() (contentStore, error) {
	if s.store == nil {
		return nil, errStoreMissing
	}
	return s.store, nil
}

func (s *Service) sessionStore() (sessionStore, error) {
	if s.sessions == nil {
		return nil, errStoreMissing
	}
	return s.sessions, nil
}

// Login verifies the admin credential and issues a session artifact. A
// mismatch yields ErrInvalidCredentials with no further detail.
func (s *Service) Login(ctx context.Context, password string) (Session, error) {
	sessions, err := s.sessionStore()
	if err != nil {
		return Session{}, err
	}
	if err := auth.VerifyPassword(password, s.cfg.AdminPassword, s.cfg.AdminPasswordHash); err != nil {
		return Session{}, err
	}

	expiresAt := time.Now().Add(s.cfg.SessionTTL)
	claims := auth.Claims{
		Sub: "admin",
		JTI: util.NewID("jti"),
		Exp: expiresAt.Unix(),
	}
	token, err := auth.IssueToken([]byte(s.cfg.SessionSecret), claims)
	if err != nil {
		return Session{}, fmt.Errorf("issue session token: %w", err)
	}
	if err := sessions.SaveAdminSession(ctx, auth.HashToken(token), expiresAt); err != nil {
		return Session{}, fmt.Errorf("register session: %w", err)
	}
	return Session{Token: token, JTI: claims.JTI, ExpiresAt: expiresAt}, nil
}

// Authenticate accepts a presented artifact only if its signature checks
// out, it has not expired, and it is still registered (not logged out).
func (s *Service) Authenticate(ctx context.Context, token string) error {
	sessions, err := s.sessionStore()
	if err != nil {
		return err
	}
	if _, err := auth.ParseToken([]byte(s.cfg.SessionSecret), token); err != nil {
		return err
	}
	live, err := sessions.LookupAdminSession(ctx, auth.HashToken(token))
	if err != nil {
		return fmt.Errorf("session lookup: %w", err)
	}
	if !live {
		return auth.ErrInvalidToken
	}
	return nil
}

// Logout revokes the presented artifact. Revoking an unknown artifact is
// not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	sessions, err := s.sessionStore()
	if err != nil {
		return err
	}
	if err := sessions.RevokeAdminSession(ctx, auth.HashToken(token)); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// Site loads settings and the normalized category tree for rendering.
func (s *Service) Site(ctx context.Context) (Site, error) {
	store, err := s.contentStore()
	if err != nil {
		return Site{}, err
	}
	settings, err := store.GetSettings(ctx)
	if err != nil {
		return Site{}, err
	}
	categories, err := store.GetCategories(ctx)
	if err != nil {
		return Site{}, err
	}
	return Site{Settings: settings, Categories: categories}, nil
}

// SaveSettings validates and replaces the settings singleton whole.
func (s *Service) SaveSettings(ctx context.Context, settings directory.Settings) error {
	if fieldErrors := directory.ValidateSettings(settings); len(fieldErrors) > 0 {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid settings", fieldErrors)
	}
	store, err := s.contentStore()
	if err != nil {
		return err
	}
	return store.ReplaceSettings(ctx, settings)
}

// SaveCategories validates and replaces the entire tree. The submitted
// tree is staged through a Draft, which reindexes sortOrder from position
// so the persisted multiset is always {0..N-1} at both nesting levels;
// link back-references are repaired before anything is written.
func (s *Service) SaveCategories(ctx context.Context, categories []directory.Category) error {
	if fieldErrors := directory.ValidateCategories(categories); len(fieldErrors) > 0 {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid categories", fieldErrors)
	}
	store, err := s.contentStore()
	if err != nil {
		return err
	}

	staged := directory.NewDraft(categories).Tree()
	for i := range staged {
		for j := range staged[i].Links {
			staged[i].Links[j].CategoryID = staged[i].ID
		}
	}

	if err := store.ReplaceCategories(ctx, staged); err != nil {
		return err
	}
	if s.search != nil {
		s.search.Reindex(ctx)
	}
	return nil
}

// ImportSnapshot atomically replaces persisted state from a snapshot.
// Records absent from the snapshot are preserved: a settings-only body
// never touches the category tree. Validation happens before any
// destructive step, and the prior state is archived best-effort when
// object storage is configured.
func (s *Service) ImportSnapshot(ctx context.Context, snapshot directory.Snapshot) error {
	if snapshot.Version != "" && snapshot.Version != directory.SnapshotVersion {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR",
			fmt.Sprintf("unsupported snapshot version %q", snapshot.Version), nil)
	}
	if snapshot.Settings == nil && snapshot.Categories == nil {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR",
			"snapshot carries neither settings nor categories", nil)
	}
	if fieldErrors := directory.ValidateCategories(snapshot.Categories); len(fieldErrors) > 0 {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid snapshot categories", fieldErrors)
	}
	store, err := s.contentStore()
	if err != nil {
		return err
	}

	if s.archiver != nil {
		if prior, exportErr := store.ExportSnapshot(ctx); exportErr != nil {
			log.Printf("import: skip pre-import archive: %v", exportErr)
		} else if object, archiveErr := s.archiver.ArchiveSnapshot(ctx, prior, "pre-import"); archiveErr != nil {
			log.Printf("import: pre-import archive failed: %v", archiveErr)
		} else {
			log.Printf("import: archived prior state as %s", object)
		}
	}

	if err := store.ImportSnapshot(ctx, snapshot); err != nil {
		return err
	}
	if s.search != nil {
		s.search.Reindex(ctx)
	}
	return nil
}

// ExportSnapshot assembles the complete current state.
func (s *Service) ExportSnapshot(ctx context.Context) (directory.Snapshot, error) {
	store, err := s.contentStore()
	if err != nil {
		return directory.Snapshot{}, err
	}
	return store.ExportSnapshot(ctx)
}

// SearchLinks serves the public search endpoint. When the administrator has
// disabled search the endpoint behaves like an unknown route.
func (s *Service) SearchLinks(ctx context.Context, q search.Query) (search.Response, error) {
	store, err := s.contentStore()
	if err != nil {
		return search.Response{}, err
	}
	settings, err := store.GetSettings(ctx)
	if err != nil {
		return search.Response{}, err
	}
	if !settings.SearchEnabled {
		return search.Response{}, domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
	if s.search == nil {
		return search.Response{Results: []search.LinkRecord{}, Query: q.Text}, nil
	}
	return s.search.Search(q), nil
}

// Ping reports storage health for the readiness probe.
func (s *Service) Ping(ctx context.Context) error {
	store, err := s.contentStore()
	if err != nil {
		return err
	}
	return store.Ping(ctx)
}
