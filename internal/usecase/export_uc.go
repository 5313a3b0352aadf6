package usecase

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/rs/zerolog"

	"pinterest-ai-studio/internal/domain/model"
	"pinterest-ai-studio/internal/domain/ports/repository"
	"pinterest-ai-studio/internal/infra/logging"
)

// csvHeader is the Pinterest bulk upload column set.
var csvHeader = []string{"Title", "Description", "Media URL", "Board", "Thumbnail"}

// ArtifactReader loads stored pin images for bundling.
type ArtifactReader interface {
	Read(rel string) ([]byte, error)
}

type ExportUseCase interface {
	// ZIP bundles every pin of the job: one folder per pin holding the
	// image and a data.json metadata file. Returns content and filename.
	ZIP(ctx context.Context, jobID, userID string) ([]byte, string, error)

	// CSV renders the job's pins as a Pinterest bulk upload sheet.
	CSV(ctx context.Context, jobID, userID string) ([]byte, string, error)
}

var _ ExportUseCase = (*exportUseCase)(nil)

type exportUseCase struct {
	jobs      repository.BulkJobRepository
	artifacts ArtifactReader
	baseURL   string // public prefix for artifact links, e.g. /api/files
	log       *zerolog.Logger
}

func NewExportUseCase(jobs repository.BulkJobRepository, artifacts ArtifactReader, baseURL string, logger *zerolog.Logger) *exportUseCase {
	l := logger.With().Str("component", "ExportUC").Logger()
	return &exportUseCase{jobs: jobs, artifacts: artifacts, baseURL: baseURL, log: &l}
}

// pinManifest is the data.json written next to each exported image.
type pinManifest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Keywords    []string  `json:"keywords"`
	ImageURL    string    `json:"imageUrl"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (e *exportUseCase) ZIP(ctx context.Context, jobID, userID string) ([]byte, string, error) {
	defer logging.TraceDuration(e.log, "ExportUC.ZIP")()

	job, pins, err := e.loadPins(ctx, jobID, userID)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for i, pin := range pins {
		dir := fmt.Sprintf("pin%d", i+1)

		// A missing artifact drops the image entry only; the pin's metadata
		// still ships so the rest of the archive survives.
		img, err := e.artifacts.Read(pin.ImagePath)
		if err != nil {
			e.log.Warn().Err(err).Str("pin_id", pin.ID).Str("path", pin.ImagePath).Msg("pin image unreadable, exporting metadata only")
		} else {
			f, err := w.Create(path.Join(dir, "image"+path.Ext(pin.ImagePath)))
			if err != nil {
				return nil, "", err
			}
			if _, err := f.Write(img); err != nil {
				return nil, "", err
			}
		}

		manifest, err := json.MarshalIndent(pinManifest{
			Title:       pin.Title,
			Description: pin.Description,
			Keywords:    pin.Keywords,
			ImageURL:    e.artifactURL(pin),
			Status:      string(pin.Status),
			CreatedAt:   pin.CreatedAt,
		}, "", "  ")
		if err != nil {
			return nil, "", err
		}
		f, err := w.Create(path.Join(dir, "data.json"))
		if err != nil {
			return nil, "", err
		}
		if _, err := f.Write(manifest); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), exportName(job, "zip"), nil
}

func (e *exportUseCase) CSV(ctx context.Context, jobID, userID string) ([]byte, string, error) {
	defer logging.TraceDuration(e.log, "ExportUC.CSV")()

	job, pins, err := e.loadPins(ctx, jobID, userID)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, "", err
	}
	for _, pin := range pins {
		record := []string{pin.Title, pin.Description, e.artifactURL(pin), "", ""}
		if err := w.Write(record); err != nil {
			return nil, "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), exportName(job, "csv"), nil
}

func (e *exportUseCase) loadPins(ctx context.Context, jobID, userID string) (*model.BulkJob, []*model.GeneratedPin, error) {
	job, err := e.jobs.FindByIDForUser(ctx, nil, jobID, userID)
	if err != nil {
		return nil, nil, err
	}
	pins, err := e.jobs.ListPinsByJob(ctx, nil, jobID)
	if err != nil {
		return nil, nil, err
	}
	return job, pins, nil
}

func (e *exportUseCase) artifactURL(pin *model.GeneratedPin) string {
	return e.baseURL + "/" + pin.ImagePath
}

func exportName(job *model.BulkJob, ext string) string {
	name := job.Name
	if name == "" {
		name = job.ID
	}
	return fmt.Sprintf("%s-%s.%s", name, job.CreatedAt.Format("20060102"), ext)
}
