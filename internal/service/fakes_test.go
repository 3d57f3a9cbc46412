package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/storelane/api/internal/model"
)

// fakeStore is an in-memory CredentialStore with the same contract as the
// real repository: lookups are case-insensitive, return detached snapshots,
// and yield (nil, nil) on a miss; role assignment fails for names outside
// the catalog; Save upserts the snapshot's token rows and revokes any other
// still-active row, so at most one refresh token stays active per user.
type fakeStore struct {
	users     map[uint]*model.User
	passwords map[uint]string
	catalog   map[string]bool
	nextID    uint

	addRolesErr   error
	hardDeleteErr error
	saveErr       error
	findErr       error

	hardDeleted []uint
	saveCount   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     make(map[uint]*model.User),
		passwords: make(map[uint]string),
		catalog:   map[string]bool{"Admin": true, "Seller": true, "Customer": true},
		nextID:    1,
	}
}

// cloneUser returns a detached copy, like a row loaded in a fresh query.
func cloneUser(u *model.User) *model.User {
	c := *u
	c.Roles = append([]model.Role(nil), u.Roles...)
	c.RefreshTokens = append([]model.RefreshToken(nil), u.RefreshTokens...)
	return &c
}

func (s *fakeStore) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (s *fakeStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (s *fakeStore) FindByID(ctx context.Context, id uint) (*model.User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if u, ok := s.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, nil
}

func (s *fakeStore) FindByRefreshTokenHash(ctx context.Context, hash string) (*model.User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, u := range s.users {
		for _, t := range u.RefreshTokens {
			if t.TokenHash == hash {
				return cloneUser(u), nil
			}
		}
	}
	return nil, nil
}

func (s *fakeStore) Create(ctx context.Context, user *model.User, password string) error {
	user.ID = s.nextID
	user.CreatedAt = time.Now().UTC()
	s.nextID++
	s.users[user.ID] = user
	s.passwords[user.ID] = password
	return nil
}

func (s *fakeStore) Save(ctx context.Context, user *model.User) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saveCount++

	saved := cloneUser(user)

	// Upsert semantics: token rows a concurrent save added are kept, not
	// overwritten by a snapshot that never loaded them.
	if prev, ok := s.users[user.ID]; ok {
		seen := make(map[string]bool, len(saved.RefreshTokens))
		for _, t := range saved.RefreshTokens {
			seen[t.TokenHash] = true
		}
		for _, t := range prev.RefreshTokens {
			if !seen[t.TokenHash] {
				saved.RefreshTokens = append(saved.RefreshTokens, t)
			}
		}
	}

	// Revoke every active row other than the snapshot's active token, the
	// same sweep the repository runs inside its transaction.
	keepHash := ""
	if active := user.ActiveRefreshToken(); active != nil {
		keepHash = active.TokenHash
	}
	now := time.Now().UTC()
	for i := range saved.RefreshTokens {
		t := &saved.RefreshTokens[i]
		if t.RevokedOn == nil && t.TokenHash != keepHash {
			t.RevokedOn = &now
		}
	}

	s.users[user.ID] = saved
	return nil
}

func (s *fakeStore) HardDelete(ctx context.Context, user *model.User) error {
	if s.hardDeleteErr != nil {
		return s.hardDeleteErr
	}
	s.hardDeleted = append(s.hardDeleted, user.ID)
	delete(s.users, user.ID)
	delete(s.passwords, user.ID)
	return nil
}

func (s *fakeStore) CheckPassword(user *model.User, password string) bool {
	return s.passwords[user.ID] == password
}

func (s *fakeStore) GetRoles(ctx context.Context, user *model.User) ([]string, error) {
	return user.RoleNames(), nil
}

func (s *fakeStore) AddRoles(ctx context.Context, user *model.User, roles []string) error {
	if s.addRolesErr != nil {
		return s.addRolesErr
	}
	for _, name := range roles {
		if !s.catalog[name] {
			return fmt.Errorf("role %q does not exist", name)
		}
	}
	apply := func(u *model.User) {
		for _, name := range roles {
			u.Roles = append(u.Roles, model.Role{Name: name})
		}
	}
	apply(user)
	if stored, ok := s.users[user.ID]; ok && stored != user {
		apply(stored)
	}
	return nil
}

func (s *fakeStore) RemoveRoles(ctx context.Context, user *model.User, roles []string) error {
	remove := make(map[string]bool, len(roles))
	for _, name := range roles {
		remove[name] = true
	}
	apply := func(u *model.User) {
		var kept []model.Role
		for _, role := range u.Roles {
			if !remove[role.Name] {
				kept = append(kept, role)
			}
		}
		u.Roles = kept
	}
	apply(user)
	if stored, ok := s.users[user.ID]; ok && stored != user {
		apply(stored)
	}
	return nil
}

// recordedEvent captures one audit call for assertions.
type recordedEvent struct {
	userID  *uint
	action  string
	success bool
}

type fakeAudit struct {
	events []recordedEvent
}

func (a *fakeAudit) Record(ctx context.Context, userID *uint, action string, success bool, details map[string]any) {
	a.events = append(a.events, recordedEvent{userID: userID, action: action, success: success})
}

// fakeRedis implements the redis client surface for throttle tests.
type fakeRedis struct {
	enabled bool
	counts  map[string]int64

	countErr error
	incrErr  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{enabled: true, counts: make(map[string]int64)}
}

func (r *fakeRedis) Ping(ctx context.Context) error { return nil }
func (r *fakeRedis) IsEnabled() bool                { return r.enabled }

func (r *fakeRedis) IncrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if r.incrErr != nil {
		return 0, r.incrErr
	}
	r.counts[key]++
	return r.counts[key], nil
}

func (r *fakeRedis) Count(ctx context.Context, key string) (int64, error) {
	if r.countErr != nil {
		return 0, r.countErr
	}
	return r.counts[key], nil
}

func (r *fakeRedis) Delete(ctx context.Context, key string) error {
	delete(r.counts, key)
	return nil
}

func (r *fakeRedis) Close() error { return nil }

var errBoom = errors.New("boom")
