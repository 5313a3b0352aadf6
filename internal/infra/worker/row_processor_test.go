package worker

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"pinterest-ai-studio/internal/domain/model"
	"pinterest-ai-studio/internal/domain/ports/adapter"
)

func newRowRig(t *testing.T, client adapter.StageClient, comp Compositor) (*RowProcessor, *memJobRepo, *fakeStore, *fakeEmbedder) {
	t.Helper()
	nop := zerolog.Nop()
	repo := newMemJobRepo()
	store := newFakeStore()
	embedder := &fakeEmbedder{}
	if comp == nil {
		comp = &fakeCompositor{}
	}
	return NewRowProcessor(repo, comp, embedder, store, &nop), repo, store, embedder
}

func stages(client adapter.StageClient) stageSet {
	b := stageBinding{client: client, provider: "openai", model: "gpt-4o-mini"}
	return stageSet{description: b, content: b, image: b}
}

func testJobAndRow(t *testing.T, quantity int) (*model.BulkJob, *model.BulkRow) {
	t.Helper()
	cfg := model.StageConfig{APIKeyID: "key-1"}
	job, err := model.NewBulkJob("user-1", "batch", cfg, cfg, cfg, "", 1000, 1500, 1)
	if err != nil {
		t.Fatalf("NewBulkJob: %v", err)
	}
	return job, model.NewBulkRow(job.ID, 0, "cozy kitchen, decor", "", quantity)
}

func TestAltTextFailureCompletesWithEmptyAlt(t *testing.T) {
	t.Parallel()
	client := &fakeStageClient{
		altFn: func(ctx context.Context, prompt string) (string, error) {
			return "", errors.New("alt model down")
		},
	}
	proc, repo, _, _ := newRowRig(t, client, nil)
	job, row := testJobAndRow(t, 1)

	done, err := proc.ProcessRow(context.Background(), job, row, stages(client), nil, nil)
	if err != nil {
		t.Fatalf("ProcessRow: %v", err)
	}
	if !done {
		t.Fatal("row should complete despite alt text failure")
	}
	if row.Status != model.BulkRowCompleted {
		t.Fatalf("row status = %s, want COMPLETED", row.Status)
	}
	if len(repo.pins) != 1 {
		t.Fatalf("pins = %d, want 1", len(repo.pins))
	}
	if repo.pins[0].AltText != "" {
		t.Fatalf("alt text = %q, want empty", repo.pins[0].AltText)
	}
}

func TestQuantityPartialSuccessCompletesRow(t *testing.T) {
	t.Parallel()
	calls := 0
	client := &fakeStageClient{
		imageFn: func(ctx context.Context, prompt string, w, h int) ([]byte, error) {
			calls++
			if calls == 2 {
				return nil, errors.New("content policy rejection")
			}
			return []byte{0xFF, 0xD8}, nil
		},
	}
	proc, repo, _, _ := newRowRig(t, client, nil)
	job, row := testJobAndRow(t, 3)

	done, err := proc.ProcessRow(context.Background(), job, row, stages(client), nil, nil)
	if err != nil {
		t.Fatalf("ProcessRow: %v", err)
	}
	if !done {
		t.Fatal("row with 2 of 3 pins should complete")
	}
	if len(repo.pins) != 2 {
		t.Fatalf("pins = %d, want 2", len(repo.pins))
	}
	if row.Status != model.BulkRowCompleted {
		t.Fatalf("row status = %s, want COMPLETED", row.Status)
	}
}

func TestAllAttemptsFailingFailsRow(t *testing.T) {
	t.Parallel()
	client := &fakeStageClient{
		imageFn: func(ctx context.Context, prompt string, w, h int) ([]byte, error) {
			return nil, errors.New("quota exhausted")
		},
	}
	proc, repo, _, _ := newRowRig(t, client, nil)
	job, row := testJobAndRow(t, 2)

	done, err := proc.ProcessRow(context.Background(), job, row, stages(client), nil, nil)
	if err != nil {
		t.Fatalf("ProcessRow: %v", err)
	}
	if done {
		t.Fatal("row with zero pins must fail")
	}
	if row.Status != model.BulkRowFailed {
		t.Fatalf("row status = %s, want FAILED", row.Status)
	}
	if len(repo.pins) != 0 {
		t.Fatalf("pins = %d, want 0", len(repo.pins))
	}
}

func TestUserOverridesSkipContentStage(t *testing.T) {
	t.Parallel()
	contentCalled := false
	client := &fakeStageClient{
		contentFn: func(ctx context.Context, prompt string) (adapter.PinContent, string, error) {
			contentCalled = true
			return adapter.PinContent{Title: "ignored"}, "{}", nil
		},
	}
	proc, repo, _, _ := newRowRig(t, client, nil)
	job, row := testJobAndRow(t, 1)
	row.Title = "My Title"
	row.Description = "My description"

	done, err := proc.ProcessRow(context.Background(), job, row, stages(client), nil, nil)
	if err != nil || !done {
		t.Fatalf("ProcessRow done=%v err=%v", done, err)
	}
	if contentCalled {
		t.Fatal("content stage must be skipped when title and description are supplied")
	}
	if repo.pins[0].Title != "My Title" || repo.pins[0].Description != "My description" {
		t.Fatalf("pin carries %q/%q, want the user overrides", repo.pins[0].Title, repo.pins[0].Description)
	}
}

func TestCompositeFailureFailsAttempt(t *testing.T) {
	t.Parallel()
	client := &fakeStageClient{}
	proc, repo, _, _ := newRowRig(t, client, &fakeCompositor{err: errors.New("bad template")})
	job, row := testJobAndRow(t, 1)

	done, err := proc.ProcessRow(context.Background(), job, row, stages(client), nil, nil)
	if err != nil {
		t.Fatalf("ProcessRow: %v", err)
	}
	if done {
		t.Fatal("composite failure on the only attempt must fail the row")
	}
	if len(repo.pins) != 0 {
		t.Fatalf("pins = %d, want 0", len(repo.pins))
	}
}

func TestFetchSourceRejectsOversizeDownload(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chunk := bytes.Repeat([]byte{0xAB}, 1<<20)
		for written := 0; written <= maxSourceImageBytes; written += len(chunk) {
			if _, err := w.Write(chunk); err != nil {
				return
			}
		}
	}))
	defer srv.Close()
	proc, _, _, _ := newRowRig(t, &fakeStageClient{}, nil)

	if _, err := proc.fetchSource(context.Background(), srv.URL); err == nil {
		t.Fatal("oversize source image must be rejected, not truncated")
	}
}

func TestFetchSourceReadsSmallDownloadIntact(t *testing.T) {
	t.Parallel()
	payload := []byte("png-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()
	proc, _, _, _ := newRowRig(t, &fakeStageClient{}, nil)

	data, err := proc.fetchSource(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetchSource: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatalf("data = %q, want %q", data, payload)
	}
}

func TestStageLogsRecorded(t *testing.T) {
	t.Parallel()
	client := &fakeStageClient{}
	proc, repo, store, _ := newRowRig(t, client, nil)
	job, row := testJobAndRow(t, 1)
	row.SourceImage = "sources/ref.png"
	store.files["sources/ref.png"] = []byte("png")

	done, err := proc.ProcessRow(context.Background(), job, row, stages(client), nil, nil)
	if err != nil || !done {
		t.Fatalf("ProcessRow done=%v err=%v", done, err)
	}

	rowStages := map[string]bool{}
	for _, sl := range row.StageLogs {
		rowStages[sl.Stage] = true
		if sl.Provider != "openai" || sl.Model != "gpt-4o-mini" {
			t.Fatalf("stage log %s carries %s/%s", sl.Stage, sl.Provider, sl.Model)
		}
	}
	if !rowStages["description"] || !rowStages["content"] {
		t.Fatalf("row stage logs missing description/content: %v", rowStages)
	}

	pinStages := map[string]bool{}
	for _, sl := range repo.pins[0].StageLogs {
		pinStages[sl.Stage] = true
	}
	for _, want := range []string{"image", "composite", "alt_text"} {
		if !pinStages[want] {
			t.Fatalf("pin stage logs missing %s: %v", want, pinStages)
		}
	}
}
