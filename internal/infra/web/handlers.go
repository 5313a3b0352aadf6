package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"pinterest-ai-studio/internal/domain"
	"pinterest-ai-studio/internal/domain/model"
	"pinterest-ai-studio/internal/domain/ports/repository"
	"pinterest-ai-studio/internal/usecase"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// respondErr maps domain sentinels onto HTTP statuses. Unknown errors are
// logged and hidden behind a generic 500.
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrUnsupportedProvider):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrAlreadyExists):
		http.Error(w, "Already exists", http.StatusConflict)
	case errors.Is(err, domain.ErrInvalidCredentials):
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
	case errors.Is(err, domain.ErrPermissionDenied):
		http.Error(w, "Forbidden", http.StatusForbidden)
	case errors.Is(err, domain.ErrJobNotCancellable), errors.Is(err, domain.ErrJobProcessing):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// ===== auth =====

type credentialsRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
}

type userResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	RoleID      string    `json:"roleId"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		RoleID:      u.RoleID,
		CreatedAt:   u.CreatedAt,
	}
}

type sessionResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	user, err := s.userUC.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	token, err := s.auth.Mint(w, user)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Token: token, User: toUserResponse(user)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	user, err := s.userUC.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	token, err := s.auth.Mint(w, user)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: token, User: toUserResponse(user)})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	claims, err := s.auth.ParseRefresh(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	user, err := s.userUC.Get(r.Context(), claims.Subject)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	token, err := s.auth.Mint(w, user)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: token, User: toUserResponse(user)})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// ===== api keys =====

type apiKeyRequest struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Secret   string `json:"secret"`
	Model    string `json:"model,omitempty"`
}

// apiKeyResponse never carries the secret, not even encrypted.
type apiKeyResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func toAPIKeyResponse(k *model.APIKey) apiKeyResponse {
	return apiKeyResponse{
		ID:        k.ID,
		Name:      k.Name,
		Provider:  string(k.Provider),
		Model:     k.ModelName,
		CreatedAt: k.CreatedAt,
	}
}

func (s *Server) handleCreateKey(w http.ResponseWriter, r *http.Request) {
	var req apiKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	key, err := s.keyUC.Create(r.Context(), userID(r), req.Name, model.ProviderType(req.Provider), req.Secret, req.Model)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAPIKeyResponse(key))
}

func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := s.keyUC.List(r.Context(), userID(r))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	out := make([]apiKeyResponse, 0, len(keys))
	for _, k := range keys {
		out = append(out, toAPIKeyResponse(k))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteKey(w http.ResponseWriter, r *http.Request) {
	if err := s.keyUC.Delete(r.Context(), chi.URLParam(r, "id"), userID(r)); err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ===== prompt templates =====

type promptRequest struct {
	Name  string `json:"name"`
	Stage string `json:"stage"`
	Body  string `json:"body"`
}

func (s *Server) handleCreatePrompt(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	t, err := s.promptUC.Create(r.Context(), userID(r), req.Name, model.PromptStage(req.Stage), req.Body)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleUpdatePrompt(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	t, err := s.promptUC.Update(r.Context(), chi.URLParam(r, "id"), userID(r), req.Name, req.Body)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleGetPrompt(w http.ResponseWriter, r *http.Request) {
	t, err := s.promptUC.Get(r.Context(), chi.URLParam(r, "id"), userID(r))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	list, err := s.promptUC.List(r.Context(), userID(r))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleDeletePrompt(w http.ResponseWriter, r *http.Request) {
	if err := s.promptUC.Delete(r.Context(), chi.URLParam(r, "id"), userID(r)); err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ===== pin templates =====

type pinTemplateRequest struct {
	Name       string              `json:"name"`
	Width      int                 `json:"width"`
	Height     int                 `json:"height"`
	Background string              `json:"background,omitempty"`
	Slots      []model.ImageSlot   `json:"slots"`
	Overlays   []model.TextOverlay `json:"overlays,omitempty"`
}

func (r pinTemplateRequest) toInput() usecase.PinTemplateInput {
	return usecase.PinTemplateInput{
		Name:       r.Name,
		Width:      r.Width,
		Height:     r.Height,
		Background: r.Background,
		Slots:      r.Slots,
		Overlays:   r.Overlays,
	}
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req pinTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	tmpl, err := s.tmplUC.Create(r.Context(), userID(r), req.toInput())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tmpl)
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var req pinTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	tmpl, err := s.tmplUC.Update(r.Context(), chi.URLParam(r, "id"), userID(r), req.toInput())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, err := s.tmplUC.Get(r.Context(), chi.URLParam(r, "id"), userID(r))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := s.tmplUC.List(r.Context(), userID(r))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.tmplUC.Delete(r.Context(), chi.URLParam(r, "id"), userID(r)); err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ===== bulk jobs =====

type jobRowRequest struct {
	Keywords    string     `json:"keywords"`
	SourceImage string     `json:"sourceImage,omitempty"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	AltText     string     `json:"altText,omitempty"`
	Quantity    int        `json:"quantity,omitempty"`
	PublishAt   *time.Time `json:"publishAt,omitempty"`
}

type jobCreateRequest struct {
	Name          string            `json:"name"`
	Description   model.StageConfig `json:"description"`
	Content       model.StageConfig `json:"content"`
	Image         model.StageConfig `json:"image"`
	PinTemplateID string            `json:"pinTemplateId,omitempty"`
	Width         int               `json:"width,omitempty"`
	Height        int               `json:"height,omitempty"`
	Rows          []jobRowRequest   `json:"rows"`
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req jobCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	in := usecase.CreateJobInput{
		Name:          req.Name,
		Description:   req.Description,
		Content:       req.Content,
		Image:         req.Image,
		PinTemplateID: req.PinTemplateID,
		Width:         req.Width,
		Height:        req.Height,
	}
	for _, row := range req.Rows {
		in.Rows = append(in.Rows, usecase.RowInput{
			Keywords:    row.Keywords,
			SourceImage: row.SourceImage,
			Title:       row.Title,
			Description: row.Description,
			AltText:     row.AltText,
			Quantity:    row.Quantity,
			PublishAt:   row.PublishAt,
		})
	}
	job, err := s.jobUC.Create(r.Context(), userID(r), in)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	f := repository.JobFilter{
		Status: model.BulkJobStatus(r.URL.Query().Get("status")),
		Offset: offset,
		Limit:  limit,
	}
	jobs, err := s.jobUC.List(r.Context(), userID(r), f)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	detail, err := s.jobUC.Get(r.Context(), chi.URLParam(r, "id"), userID(r))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobUC.Cancel(r.Context(), chi.URLParam(r, "id"), userID(r))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := s.jobUC.Delete(r.Context(), chi.URLParam(r, "id"), userID(r)); err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ===== exports and artifact serving =====

func (s *Server) handleExportZIP(w http.ResponseWriter, r *http.Request) {
	data, name, err := s.exportUC.ZIP(r.Context(), chi.URLParam(r, "id"), userID(r))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	serveAttachment(w, name, "application/zip", data)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	data, name, err := s.exportUC.CSV(r.Context(), chi.URLParam(r, "id"), userID(r))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	serveAttachment(w, name, "text/csv", data)
}

func serveAttachment(w http.ResponseWriter, name, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func (s *Server) handleServeArtifact(w http.ResponseWriter, r *http.Request) {
	rel := chi.URLParam(r, "*")
	full, err := s.artifacts.Resolve(rel)
	if err != nil {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	http.ServeFile(w, r, full)
}
