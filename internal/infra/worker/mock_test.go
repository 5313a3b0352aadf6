package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pinterest-ai-studio/internal/domain"
	"pinterest-ai-studio/internal/domain/model"
	"pinterest-ai-studio/internal/domain/ports/adapter"
	"pinterest-ai-studio/internal/domain/ports/repository"
)

// memJobRepo is an in-memory BulkJobRepository for pipeline tests.
type memJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.BulkJob
	rows map[string][]*model.BulkRow
	pins []*model.GeneratedPin

	// afterCounters runs after every UpdateCounters call, used to flip a
	// job to CANCELLED mid-run.
	afterCounters func(jobID string, completed, failed int)

	// afterFind runs after every FindByID snapshot, used to change the job
	// between a status re-read and the write that follows it.
	afterFind func(job *model.BulkJob)
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{
		jobs: map[string]*model.BulkJob{},
		rows: map[string][]*model.BulkRow{},
	}
}

func (m *memJobRepo) put(job *model.BulkJob, rows []*model.BulkRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	m.rows[job.ID] = rows
}

func (m *memJobRepo) Create(ctx context.Context, tx repository.Tx, job *model.BulkJob, rows []*model.BulkRow) error {
	m.put(job, rows)
	return nil
}

func (m *memJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.BulkJob, error) {
	m.mu.Lock()
	job, ok := m.jobs[id]
	if !ok {
		m.mu.Unlock()
		return nil, domain.ErrNotFound
	}
	cp := *job
	hook := m.afterFind
	m.mu.Unlock()
	if hook != nil {
		hook(&cp)
	}
	return &cp, nil
}

func (m *memJobRepo) FindByIDForUser(ctx context.Context, tx repository.Tx, id, userID string) (*model.BulkJob, error) {
	job, err := m.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

func (m *memJobRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, f repository.JobFilter) ([]*model.BulkJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.BulkJob
	for _, j := range m.jobs {
		if j.UserID == userID {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memJobRepo) MarkProcessing(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if job.Status != model.BulkJobPending {
		return false, nil
	}
	now := time.Now()
	job.Status = model.BulkJobProcessing
	job.StartedAt = &now
	return true, nil
}

func (m *memJobRepo) UpdateStatusIf(ctx context.Context, tx repository.Tx, id string, status model.BulkJobStatus, errText string, from ...model.BulkJobStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
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

func (m *memJobRepo) UpdateCounters(ctx context.Context, tx repository.Tx, id string, completed, failed int) error {
	m.mu.Lock()
	job, ok := m.jobs[id]
	if !ok {
		m.mu.Unlock()
		return domain.ErrNotFound
	}
	job.CompletedRows = completed
	job.FailedRows = failed
	hook := m.afterCounters
	m.mu.Unlock()
	if hook != nil {
		hook(id, completed, failed)
	}
	return nil
}

func (m *memJobRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.jobs, id)
	delete(m.rows, id)
	return nil
}

func (m *memJobRepo) FindStaleProcessing(ctx context.Context, tx repository.Tx, cutoff time.Time) ([]*model.BulkJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.BulkJob
	for _, j := range m.jobs {
		if j.Status == model.BulkJobProcessing && j.UpdatedAt.Before(cutoff) {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memJobRepo) ListRows(ctx context.Context, tx repository.Tx, jobID string) ([]*model.BulkRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[jobID], nil
}

func (m *memJobRepo) SaveRow(ctx context.Context, tx repository.Tx, row *model.BulkRow) error {
	return nil
}

func (m *memJobRepo) CreatePin(ctx context.Context, tx repository.Tx, pin *model.GeneratedPin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pins = append(m.pins, pin)
	return nil
}

func (m *memJobRepo) ListPinsByJob(ctx context.Context, tx repository.Tx, jobID string) ([]*model.GeneratedPin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.GeneratedPin(nil), m.pins...), nil
}

// fakeStageClient drives the pipeline with function fields; unset fields
// succeed with canned output.
type fakeStageClient struct {
	describeFn func(ctx context.Context, prompt string, image []byte) (string, error)
	contentFn  func(ctx context.Context, prompt string) (adapter.PinContent, string, error)
	imageFn    func(ctx context.Context, prompt string, w, h int) ([]byte, error)
	altFn      func(ctx context.Context, prompt string) (string, error)
}

func (f *fakeStageClient) DescribeImage(ctx context.Context, prompt string, image []byte) (string, error) {
	if f.describeFn != nil {
		return f.describeFn(ctx, prompt, image)
	}
	return "a scenic photo", nil
}

func (f *fakeStageClient) GenerateContent(ctx context.Context, prompt string) (adapter.PinContent, string, error) {
	if f.contentFn != nil {
		return f.contentFn(ctx, prompt)
	}
	return adapter.PinContent{Title: "Generated Title", Description: "Generated description", Keywords: []string{"one", "two"}}, `{"title":"Generated Title"}`, nil
}

func (f *fakeStageClient) GenerateImage(ctx context.Context, prompt string, w, h int) ([]byte, error) {
	if f.imageFn != nil {
		return f.imageFn(ctx, prompt, w, h)
	}
	return []byte{0xFF, 0xD8, 0xFF, 0xD9}, nil
}

func (f *fakeStageClient) GenerateAltText(ctx context.Context, prompt string) (string, error) {
	if f.altFn != nil {
		return f.altFn(ctx, prompt)
	}
	return "generated alt text", nil
}

// fakeFactory hands out the same client for every credential.
type fakeFactory struct {
	client adapter.StageClient
	err    error
}

func (f *fakeFactory) ForCredential(ctx context.Context, cred adapter.Credential) (adapter.StageClient, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.client, nil
}

// fakeResolver maps api key ids to credentials.
type fakeResolver struct {
	err error
}

func (f *fakeResolver) Resolve(ctx context.Context, apiKeyID, userID string) (adapter.Credential, error) {
	if f.err != nil {
		return adapter.Credential{}, f.err
	}
	return adapter.Credential{Provider: model.ProviderOpenAI, Secret: "sk-test", Model: "gpt-4o-mini"}, nil
}

// fakeLocker always grants unless told otherwise.
type fakeLocker struct {
	denied bool
	locks  int
}

func (f *fakeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if f.denied {
		return "", domain.ErrLockNotAcquired
	}
	f.locks++
	return "token", nil
}

func (f *fakeLocker) Unlock(ctx context.Context, key, token string) error { return nil }

// fakeCompositor passes the base image through.
type fakeCompositor struct {
	err error
}

func (f *fakeCompositor) Composite(base []byte, tmpl *model.PinTemplate, outW, outH int) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return base, nil
}

// fakeEmbedder records calls.
type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeEmbedder) Embed(path, title, description string, keywords []string) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

// fakeStore keeps artifacts in a map.
type fakeStore struct {
	mu    sync.Mutex
	files map[string][]byte
	n     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{files: map[string][]byte{}}
}

func (f *fakeStore) Save(dir string, data []byte, ext string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	rel := fmt.Sprintf("%s/artifact-%d.%s", dir, f.n, ext)
	f.files[rel] = data
	return rel, nil
}

func (f *fakeStore) Read(rel string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[rel]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (f *fakeStore) Resolve(rel string) (string, error) { return "/tmp/" + rel, nil }

// memPromptRepo serves user prompt templates.
type memPromptRepo struct {
	tmpls []*model.PromptTemplate
	err   error
}

func (m *memPromptRepo) Save(ctx context.Context, tx repository.Tx, t *model.PromptTemplate) error {
	m.tmpls = append(m.tmpls, t)
	return nil
}

func (m *memPromptRepo) FindByID(ctx context.Context, tx repository.Tx, id, userID string) (*model.PromptTemplate, error) {
	for _, t := range m.tmpls {
		if t.ID == id && t.UserID == userID {
			return t, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memPromptRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.PromptTemplate, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*model.PromptTemplate
	for _, t := range m.tmpls {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memPromptRepo) Delete(ctx context.Context, tx repository.Tx, id, userID string) error {
	return nil
}

// memTemplateRepo serves a single pin template.
type memTemplateRepo struct {
	tmpl *model.PinTemplate
}

func (m *memTemplateRepo) Save(ctx context.Context, tx repository.Tx, t *model.PinTemplate) error {
	m.tmpl = t
	return nil
}

func (m *memTemplateRepo) FindByID(ctx context.Context, tx repository.Tx, id, userID string) (*model.PinTemplate, error) {
	if m.tmpl == nil || m.tmpl.ID != id {
		return nil, domain.ErrNotFound
	}
	return m.tmpl, nil
}

func (m *memTemplateRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.PinTemplate, error) {
	if m.tmpl == nil {
		return nil, nil
	}
	return []*model.PinTemplate{m.tmpl}, nil
}

func (m *memTemplateRepo) Delete(ctx context.Context, tx repository.Tx, id, userID string) error {
	m.tmpl = nil
	return nil
}
