package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/iLink-CyberShARE/swim-api/pkg/audit"
)

type fakeCredentialStore struct {
	mu         sync.Mutex
	nextID     int64
	identities map[int64]*Identity
	err        error
	updates    int
}

func newFakeCredentialStore() *fakeCredentialStore {
	return &fakeCredentialStore{identities: make(map[int64]*Identity)}
}

func (f *fakeCredentialStore) Create(ctx context.Context, identity *Identity) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	for _, existing := range f.identities {
		if existing.Email == identity.Email {
			return 0, ErrDuplicateIdentity
		}
	}
	f.nextID++
	stored := *identity
	stored.ID = f.nextID
	f.identities[stored.ID] = &stored
	return stored.ID, nil
}

func (f *fakeCredentialStore) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, identity := range f.identities {
		if identity.Email == email {
			found := *identity
			return &found, nil
		}
	}
	return nil, ErrIdentityNotFound
}

func (f *fakeCredentialStore) FindByID(ctx context.Context, id int64) (*Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	identity, ok := f.identities[id]
	if !ok {
		return nil, ErrIdentityNotFound
	}
	found := *identity
	return &found, nil
}

func (f *fakeCredentialStore) UpdatePassword(ctx context.Context, id int64, digest string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	identity, ok := f.identities[id]
	if !ok {
		return ErrIdentityNotFound
	}
	identity.PasswordHash = digest
	f.updates++
	return nil
}

func (f *fakeCredentialStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.identities)
}

func (f *fakeCredentialStore) get(id int64) *Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	identity := *f.identities[id]
	return &identity
}

type fakeSecretSource struct {
	value string
	err   error
	calls atomic.Int32
}

func (f *fakeSecretSource) ReadSecret(ctx context.Context) (string, error) {
	f.calls.Add(1)
	return f.value, f.err
}

type staticSecretStore struct {
	secret string
	err    error
}

func (s staticSecretStore) Read(ctx context.Context) (string, error) { return s.secret, s.err }

func (s staticSecretStore) Invalidate() {}

type recordingAudit struct {
	mu     sync.Mutex
	events []*audit.Event
}

func (r *recordingAudit) Log(ctx context.Context, event *audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingAudit) Close() error { return nil }

func (r *recordingAudit) last() *audit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return nil
	}
	return r.events[len(r.events)-1]
}

func (r *recordingAudit) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

var errConnRefused = errors.New("connection refused")
