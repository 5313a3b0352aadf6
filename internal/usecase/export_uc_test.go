package usecase

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"pinterest-ai-studio/internal/domain/model"
)

func newExportRig(t *testing.T) (*exportUseCase, *memJobs, *memArtifacts) {
	t.Helper()
	nop := zerolog.Nop()
	jobs := newMemJobs()
	artifacts := &memArtifacts{files: map[string][]byte{}}
	uc := NewExportUseCase(jobs, artifacts, "/api/v1/files", &nop)
	return uc, jobs, artifacts
}

func seedExportJob(t *testing.T, jobs *memJobs, artifacts *memArtifacts, pins ...*model.GeneratedPin) *model.BulkJob {
	t.Helper()
	cfg := model.StageConfig{APIKeyID: "k"}
	job, err := model.NewBulkJob("user-1", "export batch", cfg, cfg, cfg, "", 1000, 1500, 1)
	if err != nil {
		t.Fatalf("NewBulkJob: %v", err)
	}
	job.Status = model.BulkJobCompleted
	jobs.jobs[job.ID] = job
	jobs.pins[job.ID] = pins
	for i, pin := range pins {
		if artifacts.files[pin.ImagePath] == nil {
			artifacts.files[pin.ImagePath] = []byte{0xFF, 0xD8, byte(i)}
		}
	}
	return job
}

func TestZIPLayout(t *testing.T) {
	t.Parallel()
	uc, jobs, artifacts := newExportRig(t)
	p1 := model.NewGeneratedPin("row-1", "First Pin", "desc one", []string{"a", "b"}, "job/one.jpg")
	p2 := model.NewGeneratedPin("row-1", "Second Pin", "desc two", nil, "job/two.jpg")
	job := seedExportJob(t, jobs, artifacts, p1, p2)

	data, name, err := uc.ZIP(context.Background(), job.ID, "user-1")
	if err != nil {
		t.Fatalf("ZIP: %v", err)
	}
	if !strings.HasSuffix(name, ".zip") {
		t.Fatalf("name = %q, want .zip suffix", name)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	got := map[string]bool{}
	for _, f := range zr.File {
		got[f.Name] = true
	}
	for _, want := range []string{"pin1/image.jpg", "pin1/data.json", "pin2/image.jpg", "pin2/data.json"} {
		if !got[want] {
			t.Fatalf("zip missing %s, has %v", want, got)
		}
	}

	// data.json carries the pin metadata.
	for _, f := range zr.File {
		if f.Name != "pin1/data.json" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open data.json: %v", err)
		}
		raw, _ := io.ReadAll(rc)
		rc.Close()
		var manifest struct {
			Title    string   `json:"title"`
			Keywords []string `json:"keywords"`
			ImageURL string   `json:"imageUrl"`
			Status   string   `json:"status"`
		}
		if err := json.Unmarshal(raw, &manifest); err != nil {
			t.Fatalf("parse data.json: %v", err)
		}
		if manifest.Title != "First Pin" || manifest.Status != "COMPLETED" {
			t.Fatalf("manifest = %+v", manifest)
		}
		if manifest.ImageURL != "/api/v1/files/job/one.jpg" {
			t.Fatalf("imageUrl = %q", manifest.ImageURL)
		}
		if len(manifest.Keywords) != 2 {
			t.Fatalf("keywords = %v", manifest.Keywords)
		}
	}
}

func TestZIPKeepsMetadataWhenImageMissing(t *testing.T) {
	t.Parallel()
	uc, jobs, artifacts := newExportRig(t)
	p1 := model.NewGeneratedPin("row-1", "First Pin", "desc one", nil, "job/one.jpg")
	p2 := model.NewGeneratedPin("row-1", "Second Pin", "desc two", nil, "job/two.jpg")
	job := seedExportJob(t, jobs, artifacts, p1, p2)
	delete(artifacts.files, "job/two.jpg")

	data, _, err := uc.ZIP(context.Background(), job.ID, "user-1")
	if err != nil {
		t.Fatalf("ZIP: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	got := map[string]bool{}
	for _, f := range zr.File {
		got[f.Name] = true
	}
	for _, want := range []string{"pin1/image.jpg", "pin1/data.json", "pin2/data.json"} {
		if !got[want] {
			t.Fatalf("zip missing %s, has %v", want, got)
		}
	}
	if got["pin2/image.jpg"] {
		t.Fatal("missing artifact must drop the image entry, not fabricate one")
	}
}

func TestCSVQuoting(t *testing.T) {
	t.Parallel()
	uc, jobs, artifacts := newExportRig(t)
	pin := model.NewGeneratedPin("row-1", `He said, "hi"`, "plain description", nil, "job/one.jpg")
	job := seedExportJob(t, jobs, artifacts, pin)

	data, name, err := uc.CSV(context.Background(), job.ID, "user-1")
	if err != nil {
		t.Fatalf("CSV: %v", err)
	}
	if !strings.HasSuffix(name, ".csv") {
		t.Fatalf("name = %q, want .csv suffix", name)
	}

	if !strings.Contains(string(data), `"He said, ""hi"""`) {
		t.Fatalf("embedded quotes not escaped per RFC 4180:\n%s", data)
	}

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want header + 1", len(records))
	}
	wantHeader := []string{"Title", "Description", "Media URL", "Board", "Thumbnail"}
	for i, col := range wantHeader {
		if records[0][i] != col {
			t.Fatalf("header[%d] = %q, want %q", i, records[0][i], col)
		}
	}
	if records[1][0] != `He said, "hi"` {
		t.Fatalf("round-tripped title = %q", records[1][0])
	}
	if records[1][2] != "/api/v1/files/job/one.jpg" {
		t.Fatalf("media url = %q", records[1][2])
	}
}

func TestExportIsOwnerScoped(t *testing.T) {
	t.Parallel()
	uc, jobs, artifacts := newExportRig(t)
	pin := model.NewGeneratedPin("row-1", "T", "D", nil, "job/one.jpg")
	job := seedExportJob(t, jobs, artifacts, pin)

	if _, _, err := uc.CSV(context.Background(), job.ID, "someone-else"); err == nil {
		t.Fatal("foreign user must not export the job")
	}
}
