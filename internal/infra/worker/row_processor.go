package worker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"pinterest-ai-studio/internal/domain/model"
	"pinterest-ai-studio/internal/domain/ports/adapter"
	"pinterest-ai-studio/internal/domain/ports/repository"
	"pinterest-ai-studio/internal/infra/logging"
	"pinterest-ai-studio/internal/infra/metrics"
)

const maxSourceImageBytes = 20 << 20

// Compositor flattens a generated base image into the pin template raster.
type Compositor interface {
	Composite(base []byte, tmpl *model.PinTemplate, outW, outH int) ([]byte, error)
}

// MetadataEmbedder writes best-effort metadata into a stored artifact.
type MetadataEmbedder interface {
	Embed(path, title, description string, keywords []string)
}

// ArtifactStore persists final images and resolves their paths.
type ArtifactStore interface {
	Save(dir string, data []byte, ext string) (string, error)
	Read(rel string) ([]byte, error)
	Resolve(rel string) (string, error)
}

// stageBinding pairs a stage client with the provider/model labels recorded
// in stage logs and metrics.
type stageBinding struct {
	client   adapter.StageClient
	provider string
	model    string
}

// stageSet holds the per-stage clients resolved once per job run.
type stageSet struct {
	description stageBinding
	content     stageBinding
	image       stageBinding
}

// Built-in prompt bodies, used for any stage the user has no template for.
var defaultPrompts = map[model.PromptStage]*model.PromptTemplate{
	model.StageDescription: {Stage: model.StageDescription, Body: "Describe this image for a Pinterest pin about {{keywords}}. Cover the subject, style and mood in at most two sentences."},
	model.StageContent:     {Stage: model.StageContent, Body: `Write Pinterest pin content for the topic "{{keywords}}".{{context}} Return a title under 100 characters, a description under 500 characters, and 5 to 10 keywords.`},
	model.StageImage:       {Stage: model.StageImage, Body: "{{title}}. {{description}} Pinterest pin artwork, vertical composition, vivid colors, no embedded text."},
	model.StageAltText:     {Stage: model.StageAltText, Body: `Write accessibility alt text for a Pinterest image titled "{{title}}". Image content: {{description}}`},
}

// RowProcessor runs the per-row stage pipeline. Stage failures are recorded
// on the row and its pins; only persistence failures are returned.
type RowProcessor struct {
	jobs     repository.BulkJobRepository
	comp     Compositor
	embedder MetadataEmbedder
	store    ArtifactStore
	httpCli  *http.Client
	log      *zerolog.Logger
}

func NewRowProcessor(jobs repository.BulkJobRepository, comp Compositor, embedder MetadataEmbedder, store ArtifactStore, logger *zerolog.Logger) *RowProcessor {
	l := logger.With().Str("component", "RowProcessor").Logger()
	return &RowProcessor{
		jobs:     jobs,
		comp:     comp,
		embedder: embedder,
		store:    store,
		httpCli:  &http.Client{Timeout: 30 * time.Second},
		log:      &l,
	}
}

// promptFor picks the user's template for a stage, falling back to the
// built-in body.
func promptFor(prompts map[model.PromptStage]*model.PromptTemplate, stage model.PromptStage) *model.PromptTemplate {
	if t, ok := prompts[stage]; ok {
		return t
	}
	return defaultPrompts[stage]
}

// ProcessRow runs one row to a terminal status and reports whether it
// completed. The returned error is a persistence fault only; the caller
// stops the run on it.
func (p *RowProcessor) ProcessRow(ctx context.Context, job *model.BulkJob, row *model.BulkRow, clients stageSet, prompts map[model.PromptStage]*model.PromptTemplate, tmpl *model.PinTemplate) (bool, error) {
	log := logging.With(ctx, p.log)

	row.Status = model.BulkRowProcessing
	if err := p.jobs.SaveRow(ctx, nil, row); err != nil {
		return false, fmt.Errorf("mark row processing: %w", err)
	}

	// Stage 1: describe the source image. Skipped when the row has none;
	// the keyword seed alone drives content generation then.
	imageDescription := ""
	if row.SourceImage != "" {
		src, err := p.fetchSource(ctx, row.SourceImage)
		if err != nil {
			return false, p.failRow(ctx, row, fmt.Sprintf("read source image: %v", err))
		}
		prompt := promptFor(prompts, model.StageDescription).Render(map[string]string{"keywords": row.Keywords})
		out, sl, err := callStage(ctx, "description", clients.description, prompt, func(c adapter.StageClient) (string, error) {
			return c.DescribeImage(ctx, prompt, src)
		})
		row.AddStageLog(sl)
		if err != nil {
			return false, p.failRow(ctx, row, fmt.Sprintf("description stage: %v", err))
		}
		imageDescription = out
	}

	// Stage 2: title/description/keywords. Full user overrides skip the
	// provider call entirely.
	title, description := row.Title, row.Description
	keywords := splitKeywords(row.Keywords)
	if title == "" || description == "" {
		contextPart := ""
		if imageDescription != "" {
			contextPart = " The pin is based on this image: " + imageDescription
		}
		prompt := promptFor(prompts, model.StageContent).Render(map[string]string{
			"keywords": row.Keywords,
			"context":  contextPart,
		})
		var content adapter.PinContent
		_, sl, err := callStage(ctx, "content", clients.content, prompt, func(c adapter.StageClient) (string, error) {
			var raw string
			var cerr error
			content, raw, cerr = c.GenerateContent(ctx, prompt)
			return raw, cerr
		})
		row.AddStageLog(sl)
		if err != nil {
			return false, p.failRow(ctx, row, fmt.Sprintf("content stage: %v", err))
		}
		if title == "" {
			title = content.Title
		}
		if description == "" {
			description = content.Description
		}
		if len(content.Keywords) > 0 {
			keywords = content.Keywords
		}
	}
	row.Title, row.Description = title, description

	// Stages 3-6 per requested pin: image, composite, alt text, metadata.
	produced := 0
	lastErr := ""
	for i := 0; i < row.Quantity; i++ {
		pin, errText := p.generatePin(ctx, job, row, clients, prompts, tmpl, title, description, keywords)
		if pin == nil {
			lastErr = errText
			continue
		}
		if err := p.jobs.CreatePin(ctx, nil, pin); err != nil {
			return false, fmt.Errorf("persist pin: %w", err)
		}
		p.embedMetadata(pin)
		metrics.IncPinsGenerated(1)
		produced++
	}

	if produced == 0 {
		return false, p.failRow(ctx, row, fmt.Sprintf("no pins produced: %s", lastErr))
	}
	row.Status = model.BulkRowCompleted
	row.Error = ""
	if err := p.jobs.SaveRow(ctx, nil, row); err != nil {
		return false, fmt.Errorf("complete row: %w", err)
	}
	metrics.IncBulkRow(string(model.BulkRowCompleted))
	log.Debug().Int("pins", produced).Msg("row completed")
	return true, nil
}

// generatePin runs one image attempt. A nil pin means the attempt failed;
// the error text is already logged on the row.
func (p *RowProcessor) generatePin(ctx context.Context, job *model.BulkJob, row *model.BulkRow, clients stageSet, prompts map[model.PromptStage]*model.PromptTemplate, tmpl *model.PinTemplate, title, description string, keywords []string) (*model.GeneratedPin, string) {
	imgPrompt := promptFor(prompts, model.StageImage).Render(map[string]string{
		"title":       title,
		"description": description,
	})
	var base []byte
	_, imgLog, err := callStage(ctx, "image", clients.image, imgPrompt, func(c adapter.StageClient) (string, error) {
		var ierr error
		base, ierr = c.GenerateImage(ctx, imgPrompt, job.Width, job.Height)
		return fmt.Sprintf("%d image bytes", len(base)), ierr
	})
	if err != nil {
		row.AddStageLog(imgLog)
		return nil, fmt.Sprintf("image stage: %v", err)
	}

	final, err := p.comp.Composite(base, tmpl, job.Width, job.Height)
	compLog := model.StageLog{Stage: "composite", Provider: "local", Request: templateLabel(tmpl), Timestamp: time.Now()}
	if err != nil {
		compLog.Error = err.Error()
		row.AddStageLog(imgLog)
		row.AddStageLog(compLog)
		return nil, fmt.Sprintf("composite stage: %v", err)
	}
	compLog.Response = fmt.Sprintf("%d jpeg bytes", len(final))

	rel, err := p.store.Save(job.ID, final, "jpg")
	if err != nil {
		row.AddStageLog(imgLog)
		row.AddStageLog(compLog)
		return nil, fmt.Sprintf("store artifact: %v", err)
	}

	pin := model.NewGeneratedPin(row.ID, title, description, keywords, rel)
	pin.AddStageLog(imgLog)
	pin.AddStageLog(compLog)

	// Alt text is best-effort: a failure leaves the pin with empty alt and
	// never fails the attempt.
	pin.AltText = row.AltText
	if pin.AltText == "" {
		altPrompt := promptFor(prompts, model.StageAltText).Render(map[string]string{
			"title":       title,
			"description": description,
		})
		out, altLog, err := callStage(ctx, "alt_text", clients.content, altPrompt, func(c adapter.StageClient) (string, error) {
			return c.GenerateAltText(ctx, altPrompt)
		})
		pin.AddStageLog(altLog)
		if err == nil {
			pin.AltText = strings.TrimSpace(out)
		}
	}
	return pin, ""
}

func (p *RowProcessor) embedMetadata(pin *model.GeneratedPin) {
	abs, err := p.store.Resolve(pin.ImagePath)
	if err != nil {
		p.log.Warn().Err(err).Str("path", pin.ImagePath).Msg("resolve artifact for metadata")
		return
	}
	p.embedder.Embed(abs, pin.Title, pin.Description, pin.Keywords)
}

func (p *RowProcessor) failRow(ctx context.Context, row *model.BulkRow, errText string) error {
	row.Status = model.BulkRowFailed
	row.Error = errText
	if err := p.jobs.SaveRow(ctx, nil, row); err != nil {
		return fmt.Errorf("mark row failed: %w", err)
	}
	metrics.IncBulkRow(string(model.BulkRowFailed))
	logging.With(ctx, p.log).Warn().Str("error", errText).Msg("row failed")
	return nil
}

// fetchSource loads a row's source image from a URL or from the store.
func (p *RowProcessor) fetchSource(ctx context.Context, ref string) ([]byte, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
		if err != nil {
			return nil, err
		}
		resp, err := p.httpCli.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("source image http %d", resp.StatusCode)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceImageBytes+1))
		if err != nil {
			return nil, err
		}
		if len(data) > maxSourceImageBytes {
			return nil, fmt.Errorf("source image larger than %d bytes", maxSourceImageBytes)
		}
		return data, nil
	}
	return p.store.Read(ref)
}

// callStage wraps one provider call with timing, metrics, and a stage log.
func callStage(ctx context.Context, stage string, b stageBinding, request string, fn func(adapter.StageClient) (string, error)) (string, model.StageLog, error) {
	start := time.Now()
	out, err := fn(b.client)
	latency := int(time.Since(start).Milliseconds())
	metrics.ObserveStageCall(stage, b.provider, b.model, latency, err == nil)

	sl := model.StageLog{
		Stage:     stage,
		Provider:  b.provider,
		Model:     b.model,
		Request:   request,
		Timestamp: time.Now(),
	}
	if err != nil {
		sl.Error = err.Error()
		return "", sl, err
	}
	sl.Response = out
	return out, sl, nil
}

func splitKeywords(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func templateLabel(tmpl *model.PinTemplate) string {
	if tmpl == nil {
		return "passthrough"
	}
	return tmpl.Name
}
