package console

import (
	"sync"

	"github.com/normaladmin/go-console-sdk/api"
	"github.com/normaladmin/go-console-sdk/util"
)

// CredentialSource is the read side of a Session. The Transport and the Router
// only ever read the access token through it.
type CredentialSource interface {
	Token() string
}

// Session is the process-wide authentication and permission context. It is
// created by the composition root and handed to the Transport, the Router and
// the API client. Credentials are only written by the authentication flow.
type Session struct {
	mu            sync.RWMutex
	accessToken   string
	refreshToken  string
	store         TokenStore
	roleMenu      []*api.MenuTreeNode
	permissions   []string
	permissionSet map[string]struct{}
}

// NewSession restores the persisted refresh token from store, if any.
func NewSession(store TokenStore) (*Session, error) {
	if store == nil {
		store = &MemoryTokenStore{}
	}
	refreshToken, err := store.LoadRefreshToken()
	if err != nil {
		return nil, err
	}
	return &Session{
		store:         store,
		refreshToken:  refreshToken,
		permissionSet: map[string]struct{}{},
	}, nil
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

func (s *Session) Credential() api.Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return api.Credential{AccessToken: s.accessToken, RefreshToken: s.refreshToken}
}

// SetToken replaces the access token. The refresh token is only replaced, and
// persisted, when a non-empty one is given.
func (s *Session) SetToken(accessToken, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = accessToken
	if refreshToken == "" {
		return nil
	}
	s.refreshToken = refreshToken
	return s.store.SaveRefreshToken(refreshToken)
}

// ClearAuth drops both tokens and the permission tree.
func (s *Session) ClearAuth() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = ""
	s.refreshToken = ""
	s.roleMenu = nil
	s.permissions = nil
	s.permissionSet = map[string]struct{}{}
	if err := s.store.ClearRefreshToken(); err != nil {
		return util.Errorf("Failed to clear refresh token: %v", err)
	}
	return nil
}

func (s *Session) RoleMenu() []*api.MenuTreeNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roleMenu
}

func (s *Session) HasRoleMenu() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.roleMenu) > 0
}

func (s *Session) Permissions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.permissions...)
}

func (s *Session) HasPermission(permission string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.permissionSet[permission]
	return ok
}

func (s *Session) setRoleMenu(tree []*api.MenuTreeNode, permissions []string) {
	set := make(map[string]struct{}, len(permissions))
	for _, p := range permissions {
		set[p] = struct{}{}
	}
	s.mu.Lock()
	s.roleMenu = tree
	s.permissions = append([]string(nil), permissions...)
	s.permissionSet = set
	s.mu.Unlock()
}

func (s *Session) resetRoleMenu() {
	s.setRoleMenu(nil, nil)
}
