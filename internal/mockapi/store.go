package mockapi

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrUnknownOpenID = errors.New("openid invalid")
	ErrUnknownToken  = errors.New("accessToken invalid")
	ErrNoCourse      = errors.New("no active course")
	ErrMismatch      = errors.New("join data does not match account")
	ErrAlreadyJoined = errors.New("already checked in for this course")
)

// Course is the currently published lesson.
type Course struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Account is one fake user. HideNid/HideCardNo make the profile answer null
// for that field while join still expects the real value. NoProfile makes
// lastInfo answer a null result.
type Account struct {
	OpenID     string
	Nid        string
	CardNo     string
	HideNid    bool
	HideCardNo bool
	NoProfile  bool
	Groups     []string
	Score      int
	joined     map[string]bool
}

// MemoryStore is an in-memory account registry with token issuance.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*Account
	tokens   map[string]string
	course   *Course
	reward   int
}

// NewMemoryStore returns an empty store. reward is the score added per check-in.
func NewMemoryStore(reward int) *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*Account),
		tokens:   make(map[string]string),
		reward:   reward,
	}
}

func (m *MemoryStore) Put(a Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc := a
	acc.joined = make(map[string]bool)
	m.accounts[a.OpenID] = &acc
}

// SetCourse publishes a course; nil withdraws it.
func (m *MemoryStore) SetCourse(c *Course) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.course = c
}

// IssueToken returns a fresh uppercase token for a known openid.
func (m *MemoryStore) IssueToken(openid string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[openid]; !ok {
		return "", ErrUnknownOpenID
	}
	tok := strings.ToUpper(uuid.NewString())
	m.tokens[tok] = openid
	return tok, nil
}

// Lookup returns a copy of the account owning token.
func (m *MemoryStore) Lookup(token string) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	openid, ok := m.tokens[token]
	if !ok {
		return Account{}, ErrUnknownToken
	}
	return *m.accounts[openid], nil
}

func (m *MemoryStore) Course() *Course {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.course == nil {
		return nil
	}
	c := *m.course
	return &c
}

// Join validates the submission against the account and current course and
// credits the reward once per course.
func (m *MemoryStore) Join(token, course, nid, cardNo string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	openid, ok := m.tokens[token]
	if !ok {
		return ErrUnknownToken
	}
	if m.course == nil {
		return ErrNoCourse
	}
	acc := m.accounts[openid]
	if course != m.course.ID || nid != acc.Nid || cardNo != acc.CardNo {
		return ErrMismatch
	}
	if acc.joined[course] {
		return ErrAlreadyJoined
	}
	acc.joined[course] = true
	acc.Score += m.reward
	return nil
}

// JoinCount reports how many courses openid has checked in to.
func (m *MemoryStore) JoinCount(openid string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if acc, ok := m.accounts[openid]; ok {
		return len(acc.joined)
	}
	return 0
}
