// Package identity is a minimal in-memory identity provider: it issues
// user ids on registration and confirms (user id, username) pairs for the
// signaling core. Accounts live only as long as the process.
package identity

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dkeye/VoiceCall/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUsernameTaken  = errors.New("username taken")
	ErrPasswordEmpty  = errors.New("password empty")
	ErrBadCredentials = errors.New("bad credentials")
)

type Profile struct {
	domain.User
	RegisteredAt time.Time `json:"registered_at"`
}

type account struct {
	profile Profile
	hash    []byte
}

type Directory struct {
	mu     sync.RWMutex
	byName map[string]*account
	byID   map[domain.UserID]*account
	cost   int
}

// NewDirectory uses bcrypt.DefaultCost when cost is zero.
func NewDirectory(cost int) *Directory {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Directory{
		byName: make(map[string]*account),
		byID:   make(map[domain.UserID]*account),
		cost:   cost,
	}
}

func (d *Directory) Register(username, password string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if err := domain.ValidateUsername(username); err != nil {
		return domain.User{}, err
	}
	if strings.TrimSpace(password) == "" {
		return domain.User{}, ErrPasswordEmpty
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.cost)
	if err != nil {
		return domain.User{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.byName[username]; ok {
		return domain.User{}, ErrUsernameTaken
	}
	id := domain.NewUserID()
	for d.byID[id] != nil {
		id = domain.NewUserID()
	}
	acc := &account{
		profile: Profile{User: domain.User{ID: id, Username: username}, RegisteredAt: time.Now().UTC()},
		hash:    hash,
	}
	d.byName[username] = acc
	d.byID[id] = acc
	log.Info().Str("module", "identity").Str("user", string(id)).Str("username", username).Msg("registered")
	return acc.profile.User, nil
}

func (d *Directory) Login(username, password string) (domain.User, error) {
	d.mu.RLock()
	acc, ok := d.byName[strings.TrimSpace(username)]
	d.mu.RUnlock()
	if !ok {
		return domain.User{}, ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return domain.User{}, ErrBadCredentials
	}
	return acc.profile.User, nil
}

func (d *Directory) Lookup(id domain.UserID) (Profile, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	acc, ok := d.byID[id]
	if !ok {
		return Profile{}, false
	}
	return acc.profile, true
}

// Authenticate confirms that id was issued under username.
func (d *Directory) Authenticate(id domain.UserID, username string) bool {
	p, ok := d.Lookup(id)
	return ok && p.Username == username
}
