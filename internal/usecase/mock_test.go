package usecase

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"

	"pinterest-ai-studio/internal/domain"
	"pinterest-ai-studio/internal/domain/model"
	"pinterest-ai-studio/internal/domain/ports/adapter"
	"pinterest-ai-studio/internal/domain/ports/repository"
)

// fakeTxManager runs the callback without a transaction.
type fakeTxManager struct{}

func (fakeTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}

// fakeQueue records enqueued job ids.
type fakeQueue struct {
	enqueued []string
	err      error
}

func (f *fakeQueue) EnqueueBulkGeneration(ctx context.Context, jobID string) error {
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, jobID)
	return nil
}

// fakeKeyUC resolves every key unless told to fail.
type fakeKeyUC struct {
	resolveErr error
}

func (f *fakeKeyUC) Create(ctx context.Context, userID, name string, provider model.ProviderType, secret, modelName string) (*model.APIKey, error) {
	return nil, nil
}

func (f *fakeKeyUC) List(ctx context.Context, userID string) ([]*model.APIKey, error) {
	return nil, nil
}

func (f *fakeKeyUC) Delete(ctx context.Context, id, userID string) error { return nil }

func (f *fakeKeyUC) Resolve(ctx context.Context, id, userID string) (adapter.Credential, error) {
	if f.resolveErr != nil {
		return adapter.Credential{}, f.resolveErr
	}
	return adapter.Credential{Provider: model.ProviderOpenAI, Secret: "sk", Model: "m"}, nil
}

// fakeRemover records deleted artifact dirs.
type fakeRemover struct {
	deleted []string
}

func (f *fakeRemover) DeleteDir(dir string) error {
	f.deleted = append(f.deleted, dir)
	return nil
}

// memJobs is a minimal in-memory BulkJobRepository.
type memJobs struct {
	jobs map[string]*model.BulkJob
	rows map[string][]*model.BulkRow
	pins map[string][]*model.GeneratedPin // by job id

	// afterFind runs after every FindByIDForUser snapshot, used to change
	// the stored job between a read and the write that follows it.
	afterFind func(job *model.BulkJob)
}

func newMemJobs() *memJobs {
	return &memJobs{
		jobs: map[string]*model.BulkJob{},
		rows: map[string][]*model.BulkRow{},
		pins: map[string][]*model.GeneratedPin{},
	}
}

func (m *memJobs) Create(ctx context.Context, tx repository.Tx, job *model.BulkJob, rows []*model.BulkRow) error {
	m.jobs[job.ID] = job
	m.rows[job.ID] = rows
	return nil
}

func (m *memJobs) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.BulkJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

func (m *memJobs) FindByIDForUser(ctx context.Context, tx repository.Tx, id, userID string) (*model.BulkJob, error) {
	job, ok := m.jobs[id]
	if !ok || job.UserID != userID {
		return nil, domain.ErrNotFound
	}
	cp := *job
	if m.afterFind != nil {
		m.afterFind(&cp)
	}
	return &cp, nil
}

func (m *memJobs) ListByUser(ctx context.Context, tx repository.Tx, userID string, f repository.JobFilter) ([]*model.BulkJob, error) {
	var out []*model.BulkJob
	for _, j := range m.jobs {
		if j.UserID == userID && (f.Status == "" || j.Status == f.Status) {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *memJobs) MarkProcessing(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	job, ok := m.jobs[id]
	if !ok || job.Status != model.BulkJobPending {
		return false, nil
	}
	job.Status = model.BulkJobProcessing
	return true, nil
}

func (m *memJobs) UpdateStatusIf(ctx context.Context, tx repository.Tx, id string, status model.BulkJobStatus, errText string, from ...model.BulkJobStatus) (bool, error) {
	job, ok := m.jobs[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	allowed := len(from) == 0
	for _, s := range from {
		if job.Status == s {
			allowed = true
		}
	}
	if !allowed {
		return false, nil
	}
	job.Status = status
	job.Error = errText
	return true, nil
}

func (m *memJobs) UpdateCounters(ctx context.Context, tx repository.Tx, id string, completed, failed int) error {
	job, ok := m.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	job.CompletedRows = completed
	job.FailedRows = failed
	return nil
}

func (m *memJobs) Delete(ctx context.Context, tx repository.Tx, id string) error {
	if _, ok := m.jobs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.jobs, id)
	delete(m.rows, id)
	delete(m.pins, id)
	return nil
}

func (m *memJobs) FindStaleProcessing(ctx context.Context, tx repository.Tx, cutoff time.Time) ([]*model.BulkJob, error) {
	return nil, nil
}

func (m *memJobs) ListRows(ctx context.Context, tx repository.Tx, jobID string) ([]*model.BulkRow, error) {
	return m.rows[jobID], nil
}

func (m *memJobs) SaveRow(ctx context.Context, tx repository.Tx, row *model.BulkRow) error {
	return nil
}

func (m *memJobs) CreatePin(ctx context.Context, tx repository.Tx, pin *model.GeneratedPin) error {
	return nil
}

func (m *memJobs) ListPinsByJob(ctx context.Context, tx repository.Tx, jobID string) ([]*model.GeneratedPin, error) {
	return m.pins[jobID], nil
}

// memPinTemplates serves one template.
type memPinTemplates struct {
	tmpl *model.PinTemplate
}

func (m *memPinTemplates) Save(ctx context.Context, tx repository.Tx, t *model.PinTemplate) error {
	m.tmpl = t
	return nil
}

func (m *memPinTemplates) FindByID(ctx context.Context, tx repository.Tx, id, userID string) (*model.PinTemplate, error) {
	if m.tmpl == nil || m.tmpl.ID != id || m.tmpl.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return m.tmpl, nil
}

func (m *memPinTemplates) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.PinTemplate, error) {
	if m.tmpl == nil {
		return nil, nil
	}
	return []*model.PinTemplate{m.tmpl}, nil
}

func (m *memPinTemplates) Delete(ctx context.Context, tx repository.Tx, id, userID string) error {
	m.tmpl = nil
	return nil
}

// memArtifacts is an in-memory ArtifactReader.
type memArtifacts struct {
	files map[string][]byte
}

func (m *memArtifacts) Read(rel string) ([]byte, error) {
	data, ok := m.files[rel]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

// memUsers / memRoles back the policy and user tests.
type memUsers struct {
	byID    map[string]*model.User
	byEmail map[string]*model.User
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*model.User{}, byEmail: map[string]*model.User{}}
}

func (m *memUsers) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	m.byID[u.ID] = u
	m.byEmail[u.Email] = u
	return nil
}

func (m *memUsers) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) List(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.User, error) {
	var out []*model.User
	for _, u := range m.byID {
		out = append(out, u)
	}
	return out, nil
}

type memRoles struct {
	roles map[string]*model.Role
}

func newMemRoles(roles ...*model.Role) *memRoles {
	m := &memRoles{roles: map[string]*model.Role{}}
	for _, r := range roles {
		m.roles[r.ID] = r
	}
	return m
}

func (m *memRoles) Save(ctx context.Context, tx repository.Tx, r *model.Role) error {
	m.roles[r.ID] = r
	return nil
}

func (m *memRoles) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Role, error) {
	r, ok := m.roles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r, nil
}

func (m *memRoles) FindByName(ctx context.Context, tx repository.Tx, name string) (*model.Role, error) {
	for _, r := range m.roles {
		if r.Name == name {
			return r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memRoles) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Role, error) {
	var out []*model.Role
	for _, r := range m.roles {
		out = append(out, r)
	}
	return out, nil
}

// memAPIKeys backs the api key usecase tests.
type memAPIKeys struct {
	keys map[string]*model.APIKey
}

func newMemAPIKeys() *memAPIKeys { return &memAPIKeys{keys: map[string]*model.APIKey{}} }

func (m *memAPIKeys) Save(ctx context.Context, tx repository.Tx, k *model.APIKey) error {
	m.keys[k.ID] = k
	return nil
}

func (m *memAPIKeys) FindByID(ctx context.Context, tx repository.Tx, id, userID string) (*model.APIKey, error) {
	k, ok := m.keys[id]
	if !ok || k.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return k, nil
}

func (m *memAPIKeys) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.APIKey, error) {
	var out []*model.APIKey
	for _, k := range m.keys {
		if k.UserID == userID {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *memAPIKeys) Delete(ctx context.Context, tx repository.Tx, id, userID string) error {
	k, ok := m.keys[id]
	if !ok || k.UserID != userID {
		return domain.ErrNotFound
	}
	delete(m.keys, id)
	return nil
}
