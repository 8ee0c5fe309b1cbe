package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/ekklesia-certificates/internal/model"
	"github.com/iliyamo/ekklesia-certificates/internal/queue"
	"github.com/iliyamo/ekklesia-certificates/internal/repository"
)

// memStore is an in-memory CertificateStore.
type memStore struct {
	mu          sync.Mutex
	byID        map[string]*model.Certificate
	createErrs  []error // returned by successive Create calls before succeeding
	createCalls int
	lastFilter  repository.CertificateFilter
}

func newMemStore() *memStore { return &memStore{byID: map[string]*model.Certificate{}} }

func (m *memStore) Create(_ context.Context, c *model.Certificate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if len(m.createErrs) > 0 {
		err := m.createErrs[0]
		m.createErrs = m.createErrs[1:]
		return err
	}
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *memStore) GetByID(_ context.Context, churchID, id string) (*model.Certificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok || c.ChurchID != churchID {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) GetByNumber(_ context.Context, number string) (*model.Certificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byID {
		if c.CertificateNumber == number {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) List(_ context.Context, f repository.CertificateFilter) ([]*model.Certificate, int64, error) {
	all := m.filter(func(c *model.Certificate) bool {
		return c.ChurchID == f.ChurchID &&
			(f.MemberID == "" || c.MemberID == f.MemberID) &&
			(f.Type == "" || c.Type == f.Type)
	})
	m.lastFilter = f
	return all, int64(len(all)), nil
}

func (m *memStore) ListByMember(_ context.Context, memberID string) ([]*model.Certificate, error) {
	return m.filter(func(c *model.Certificate) bool { return c.MemberID == memberID }), nil
}

func (m *memStore) filter(keep func(*model.Certificate) bool) []*model.Certificate {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Certificate, 0)
	for _, c := range m.byID {
		if c.Active && !c.Revoked && keep(c) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedDate.After(out[j].IssuedDate) })
	return out
}

func (m *memStore) ExistsActive(_ context.Context, churchID, memberID, certType, refID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byID {
		if c.ChurchID == churchID && c.MemberID == memberID && c.Type == certType && c.ReferenceID() == refID && !c.Revoked {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) UpdateHash(_ context.Context, churchID, id, hash, qrURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.byID[id]; ok && c.ChurchID == churchID {
		c.ValidationHash, c.QRCodeURL = hash, qrURL
	}
	return nil
}

func (m *memStore) Revoke(_ context.Context, churchID, id, reason string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok || c.ChurchID != churchID || c.Revoked {
		return repository.ErrConflict
	}
	c.Revoked, c.RevokedAt, c.RevokeReason = true, &at, &reason
	return nil
}

// put stores c directly, bypassing issuance.
func (m *memStore) put(c *model.Certificate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.byID[c.ID] = &cp
}

type memValidations struct {
	mu   sync.Mutex
	rows []model.CertificateValidation
	err  error
}

func (m *memValidations) Record(_ context.Context, v *model.CertificateValidation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, *v)
	return nil
}

func (m *memValidations) CountForCertificate(_ context.Context, certificateID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.rows {
		if r.CertificateID == certificateID {
			n++
		}
	}
	return n, nil
}

func (m *memValidations) last() model.CertificateValidation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[len(m.rows)-1]
}

// fakeRecords answers RecordStore queries from maps keyed "a/b".
type fakeRecords struct {
	members   map[string]string // church/member -> name
	baptisms  map[string]bool   // church/baptism/member
	completed map[string]string // member/course -> course church
	events    map[string]bool   // church/event
	attended  map[string]bool   // member/event
	church    string
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{
		members:   map[string]string{},
		baptisms:  map[string]bool{},
		completed: map[string]string{},
		events:    map[string]bool{},
		attended:  map[string]bool{},
		church:    "Igreja Central",
	}
}

func (f *fakeRecords) MemberName(_ context.Context, churchID, memberID string) (string, error) {
	name, ok := f.members[churchID+"/"+memberID]
	if !ok {
		return "", repository.ErrNotFound
	}
	return name, nil
}

func (f *fakeRecords) BaptismBelongs(_ context.Context, churchID, baptismID, memberID string) (bool, error) {
	return f.baptisms[churchID+"/"+baptismID+"/"+memberID], nil
}

func (f *fakeRecords) CourseCompletion(_ context.Context, memberID, courseID string) (bool, string, error) {
	church, ok := f.completed[memberID+"/"+courseID]
	return ok, church, nil
}

func (f *fakeRecords) EventInChurch(_ context.Context, churchID, eventID string) (bool, error) {
	return f.events[churchID+"/"+eventID], nil
}

func (f *fakeRecords) Attended(_ context.Context, memberID, eventID string) (bool, error) {
	return f.attended[memberID+"/"+eventID], nil
}

func (f *fakeRecords) Details(_ context.Context, c *model.Certificate) (*model.CertificateDetails, error) {
	d := &model.CertificateDetails{ChurchName: f.church}
	if c.CourseID != nil {
		d.Course = &model.CourseInfo{Name: "Curso X"}
	}
	return d, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.CertificateEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.CertificateEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Kind)
	}
	return out
}
