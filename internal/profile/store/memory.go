package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"familygate/internal/profile/models"
	"familygate/pkg/domain"
)

// Memory is the in-memory implementation backing unit tests and local
// development. It implements Store, AuthorityWriter, AccountStore and
// PersonStore over shared maps so joins stay trivial.
type Memory struct {
	mu       sync.RWMutex
	txMu     sync.Mutex
	accounts map[domain.AccountID]*models.Account
	persons  map[domain.PersonID]*models.PersonRecord
	profiles map[domain.ProfileID]*models.Profile
}

func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[domain.AccountID]*models.Account),
		persons:  make(map[domain.PersonID]*models.PersonRecord),
		profiles: make(map[domain.ProfileID]*models.Profile),
	}
}

// SeedAccount and SeedPerson install fixtures; accounts and roster rows are
// created outside this core in production.
func (m *Memory) SeedAccount(account *models.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *account
	m.accounts[account.ID] = &cp
}

func (m *Memory) SeedPerson(person *models.PersonRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := clonePerson(person)
	m.persons[person.ID] = cp
}

func (m *Memory) Create(_ context.Context, profile *models.Profile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[profile.AccountID]; !ok {
		return ErrNotFound
	}
	cp := cloneProfile(profile)
	m.profiles[profile.ID] = cp
	return nil
}

func (m *Memory) Find(_ context.Context, accountID domain.AccountID, profileID domain.ProfileID) (*models.View, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[profileID]
	if !ok || p.AccountID != accountID {
		return nil, ErrNotFound
	}
	return m.view(p), nil
}

func (m *Memory) List(_ context.Context, accountID domain.AccountID) ([]*models.View, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var views []*models.View
	for _, p := range m.profiles {
		if p.AccountID == accountID {
			views = append(views, m.view(p))
		}
	}
	sort.Slice(views, func(i, j int) bool {
		if views[i].Relationship != views[j].Relationship {
			return views[i].Relationship == models.RelationshipParent
		}
		if !views[i].CreatedAt.Equal(views[j].CreatedAt) {
			return views[i].CreatedAt.Before(views[j].CreatedAt)
		}
		return strings.Compare(views[i].ID.String(), views[j].ID.String()) < 0
	})
	return views, nil
}

func (m *Memory) UpdatePersonal(_ context.Context, accountID domain.AccountID, profileID domain.ProfileID, update models.PersonalUpdate) (*models.View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[profileID]
	if !ok || p.AccountID != accountID {
		return nil, ErrNotFound
	}
	person, ok := m.persons[p.PersonRecordID]
	if !ok {
		return nil, ErrNotFound
	}
	if update.FirstName != nil {
		person.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		person.LastName = *update.LastName
	}
	p.UpdatedAt = time.Now()
	return m.view(p), nil
}

func (m *Memory) SetConsentState(_ context.Context, profileID domain.ProfileID, state models.ConsentState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[profileID]
	if !ok {
		return ErrNotFound
	}
	p.Status = state.Status
	p.AccessLevel = state.AccessLevel
	p.RequiresConsent = state.RequiresConsent
	p.ConsentGiven = state.ConsentGiven
	p.ConsentExpiry = cloneTime(state.ConsentExpiry)
	p.UpdatedAt = time.Now()
	return nil
}

// AccountStore

func (m *Memory) FindAccount(ctx context.Context, id domain.AccountID) (*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *Memory) SetAccountStatus(_ context.Context, id domain.AccountID, status models.AccountStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now()
	return nil
}

// PersonStore

func (m *Memory) FindPerson(_ context.Context, id domain.PersonID) (*models.PersonRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.persons[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clonePerson(p), nil
}

func (m *Memory) FindPersonsByEmail(_ context.Context, email string) ([]*models.PersonRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.PersonRecord
	for _, p := range m.persons {
		if strings.EqualFold(p.Email, email) {
			out = append(out, clonePerson(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.Compare(out[i].ID.String(), out[j].ID.String()) < 0
	})
	return out, nil
}

func (m *Memory) SetPersonBirthYear(_ context.Context, id domain.PersonID, year int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.persons[id]
	if !ok {
		return ErrNotFound
	}
	p.BirthYear = &year
	return nil
}

// BeginTx acquires the store-wide transaction lock; EndTx releases it.
// Snapshots cover the whole store, so every runner that rolls back via
// Snapshot/Restore must hold this lock for its full critical section —
// otherwise a rollback restores state from before another transaction's
// commit and erases it.
func (m *Memory) BeginTx() { m.txMu.Lock() }

func (m *Memory) EndTx() { m.txMu.Unlock() }

// Snapshot deep-copies the store state; Restore replaces it. The in-memory
// transaction runner uses the pair to honor rollback semantics.
func (m *Memory) Snapshot() *Memory {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := NewMemory()
	for id, a := range m.accounts {
		cp := *a
		snap.accounts[id] = &cp
	}
	for id, p := range m.persons {
		snap.persons[id] = clonePerson(p)
	}
	for id, p := range m.profiles {
		snap.profiles[id] = cloneProfile(p)
	}
	return snap
}

func (m *Memory) Restore(snap *Memory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = snap.accounts
	m.persons = snap.persons
	m.profiles = snap.profiles
}

func (m *Memory) view(p *models.Profile) *models.View {
	v := &models.View{Profile: *cloneProfile(p)}
	if person, ok := m.persons[p.PersonRecordID]; ok {
		v.Email = person.Email
		v.FirstName = person.FirstName
		v.LastName = person.LastName
		v.BirthYear = cloneYear(person.BirthYear)
	}
	return v
}

func cloneProfile(p *models.Profile) *models.Profile {
	cp := *p
	if p.ParentProfileID != nil {
		parent := *p.ParentProfileID
		cp.ParentProfileID = &parent
	}
	cp.ConsentExpiry = cloneTime(p.ConsentExpiry)
	return &cp
}

func clonePerson(p *models.PersonRecord) *models.PersonRecord {
	cp := *p
	cp.BirthYear = cloneYear(p.BirthYear)
	return &cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

func cloneYear(y *int) *int {
	if y == nil {
		return nil
	}
	cp := *y
	return &cp
}
