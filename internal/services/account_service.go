package services

import (
	"context"
	"errors"
	"strings"

	"minitracker/internal/core"
	"minitracker/internal/log"
	"minitracker/internal/session"
)

var (
	ErrInvalidID          = errors.New("invalid id")
	ErrMissingCredentials = errors.New("email and password are required")
)

// AccountService covers authentication, the own profile and the admin user
// list.
type AccountService struct {
	api   AccountAPI
	store session.Store
}

func NewAccountService(api AccountAPI, store session.Store) *AccountService {
	return &AccountService{api: api, store: store}
}

// Login authenticates, assigns a fresh session id and stores the session.
// When current is set the session also becomes the store's current one.
func (s *AccountService) Login(ctx context.Context, email, password string, current bool) (*core.Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	sess, err := s.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	sess.ID = session.NewID()

	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	if current {
		if err := s.store.SetCurrent(ctx, sess.ID); err != nil {
			return nil, err
		}
	}

	log.FromContext(ctx).InfoContext(ctx, "User logged in",
		log.NewFields().
			WithOperation(log.OpLogin).
			WithUser(sess.UserID, sess.Role.String()).
			ToSlice()...)
	return sess, nil
}

func (s *AccountService) Register(ctx context.Context, r core.Registration) error {
	if err := r.Validate(); err != nil {
		return err
	}
	return s.api.Register(ctx, r)
}

// Logout forgets the session locally. There is no server-side revocation.
func (s *AccountService) Logout(ctx context.Context, sess *core.Session) error {
	if sess == nil || sess.ID == "" {
		return nil
	}
	if err := s.store.Delete(ctx, sess.ID); err != nil {
		return err
	}
	log.FromContext(ctx).InfoContext(ctx, "User logged out",
		log.FieldOperation, log.OpLogout, log.FieldUserID, sess.UserID)
	return nil
}

// Current returns the stored current session, or ErrNotAuthenticated.
func (s *AccountService) Current(ctx context.Context) (*core.Session, error) {
	sess, err := s.store.Current(ctx)
	if errors.Is(err, session.ErrNotFound) {
		return nil, session.ErrNotAuthenticated
	}
	return sess, err
}

// Lookup returns the stored session with id, or ErrNotAuthenticated.
func (s *AccountService) Lookup(ctx context.Context, id string) (*core.Session, error) {
	if id == "" {
		return nil, session.ErrNotAuthenticated
	}
	sess, err := s.store.Get(ctx, id)
	if errors.Is(err, session.ErrNotFound) {
		return nil, session.ErrNotAuthenticated
	}
	return sess, err
}

func (s *AccountService) Profile(ctx context.Context, sess *core.Session) (core.User, error) {
	if err := session.Require(sess); err != nil {
		return core.User{}, err
	}
	u, err := s.api.GetProfile(ctx, sess)
	if err != nil {
		return core.User{}, forgetExpired(ctx, s.store, sess, err)
	}
	return u, nil
}

func (s *AccountService) UpdateProfile(ctx context.Context, sess *core.Session, p core.ProfileUpdate) (core.User, error) {
	if err := session.Require(sess); err != nil {
		return core.User{}, err
	}
	if err := p.Validate(); err != nil {
		return core.User{}, err
	}
	u, err := s.api.UpdateProfile(ctx, sess, p)
	if err != nil {
		return core.User{}, forgetExpired(ctx, s.store, sess, err)
	}
	log.FromContext(ctx).InfoContext(ctx, "Profile updated",
		log.FieldOperation, log.OpUpdate, log.FieldUserID, sess.UserID)
	return u, nil
}

func (s *AccountService) ListUsers(ctx context.Context, sess *core.Session) ([]core.User, error) {
	if err := session.RequireAdmin(sess); err != nil {
		return nil, err
	}
	users, err := s.api.ListUsers(ctx, sess)
	if err != nil {
		return nil, forgetExpired(ctx, s.store, sess, err)
	}
	return users, nil
}

func (s *AccountService) SetLocked(ctx context.Context, sess *core.Session, userID int64, locked bool) error {
	if err := session.RequireAdmin(sess); err != nil {
		return err
	}
	if userID <= 0 {
		return ErrInvalidID
	}
	if err := s.api.SetLocked(ctx, sess, userID, locked); err != nil {
		return forgetExpired(ctx, s.store, sess, err)
	}
	log.FromContext(ctx).InfoContext(ctx, "User lock state changed",
		log.FieldOperation, log.OpUpdate,
		log.FieldUserID, userID,
		"locked", locked)
	return nil
}
