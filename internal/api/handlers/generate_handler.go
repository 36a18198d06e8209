package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"paperjet/internal/engine/render"
	"paperjet/internal/engine/usage"
	apierrors "paperjet/internal/pkg/errors"
	"paperjet/internal/platform/auth"
	"paperjet/internal/platform/models"
)

const apiKeyHeader = "X-API-Key"

const maxUploadBytes = 32 << 20

type GenerateHandler struct {
	gate     *auth.Gate
	ledger   *usage.Ledger
	renderer render.Renderer
}

func NewGenerateHandler(gate *auth.Gate, ledger *usage.Ledger, renderer render.Renderer) *GenerateHandler {
	return &GenerateHandler{gate: gate, ledger: ledger, renderer: renderer}
}

// generateRequest is the parsed render request, from either a JSON body
// (named template mode) or a multipart upload (template content mode).
type generateRequest struct {
	Mode            string
	HTML            string
	CSS             string
	TemplateName    string
	TemplateContent string
	Data            map[string]interface{}
	Filename        string

	// fromMultipart defers the upload reads until after the quota
	// decision; see loadUploads.
	fromMultipart bool
}

type attemptResult struct {
	mode     string
	status   int
	success  bool
	pdfBytes int64
}

// Handle runs one generation attempt. Credential denials return before
// anything touches the ledger; once the secret resolves, exactly one
// usage event is appended on every exit path via the deferred record.
func (h *GenerateHandler) Handle(w http.ResponseWriter, r *http.Request) {
	authCtx, denial := h.gate.Authorize(r.Header.Get(apiKeyHeader))
	if denial != nil && denial.Record == nil {
		apierrors.WriteError(w, denial.Status, denialCode(denial.Reason), denial.Message, nil)
		return
	}

	record := denialRecord(authCtx, denial)
	attempt := &attemptResult{mode: models.ModeUnknown, status: http.StatusOK}
	defer h.recordAttempt(record, attempt)

	req, verr := parseGenerateRequest(r)
	if req != nil {
		attempt.mode = req.Mode
	}
	if verr != nil {
		attempt.status = http.StatusUnprocessableEntity
		apierrors.WriteError(w, attempt.status, apierrors.ErrCodeInvalidInput, verr.Error(), nil)
		return
	}

	if denial != nil {
		attempt.status = denial.Status
		apierrors.WriteError(w, denial.Status, apierrors.ErrCodeQuotaExceeded, denial.Message, nil)
		return
	}

	if verr := req.loadUploads(r); verr != nil {
		attempt.status = http.StatusUnprocessableEntity
		apierrors.WriteError(w, attempt.status, apierrors.ErrCodeInvalidInput, verr.Error(), nil)
		return
	}

	var html string
	var err error
	switch {
	case req.Mode == models.ModeHTMLUpload:
		html = h.renderer.BuildHTML(req.HTML, req.CSS)
	case req.TemplateContent != "":
		html, err = h.renderer.RenderTemplateContent(req.TemplateContent, req.Data, req.CSS)
	default:
		html, err = h.renderer.RenderTemplate(req.TemplateName, req.Data, req.CSS)
	}
	if err != nil {
		attempt.status = http.StatusUnprocessableEntity
		if errors.Is(err, render.ErrTemplateNotFound) {
			apierrors.WriteError(w, attempt.status, apierrors.ErrCodeNotFound,
				fmt.Sprintf("Template %q was not found.", req.TemplateName), nil)
			return
		}
		apierrors.WriteError(w, attempt.status, apierrors.ErrCodeInvalidInput, err.Error(), nil)
		return
	}

	pdf, err := h.renderer.PDF(r.Context(), html)
	if err != nil {
		attempt.status = http.StatusInternalServerError
		log.Error().Err(err).Str("api_key_id", record.APIKeyID).Msg("pdf generation failed")
		apierrors.WriteError(w, attempt.status, apierrors.ErrCodeRenderFailed, "Failed to generate PDF.", nil)
		return
	}

	attempt.success = true
	attempt.status = http.StatusOK
	attempt.pdfBytes = int64(len(pdf))

	filename := strings.TrimSpace(req.Filename)
	if filename == "" {
		filename = "generated.pdf"
	}
	if !strings.HasSuffix(filename, ".pdf") {
		filename += ".pdf"
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

// recordAttempt appends the ledger event for an authorized attempt. The
// account id always comes from the resolved key, never from the caller.
// An append failure must not clobber the response that was already
// written, but it cannot be silent either: a lost event corrupts future
// quota accounting.
func (h *GenerateHandler) recordAttempt(record *models.APIKeyRecord, a *attemptResult) {
	err := h.ledger.Append(&models.UsageEvent{
		APIKeyID:    record.APIKeyID,
		AccountID:   record.AccountID,
		RequestMode: a.mode,
		Success:     a.success,
		StatusCode:  a.status,
		PDFBytes:    a.pdfBytes,
	})
	if err != nil {
		log.Error().Err(err).
			Str("api_key_id", record.APIKeyID).
			Str("account_id", record.AccountID).
			Msg("failed to append usage event")
	}
}

func denialRecord(authCtx *auth.Context, denial *auth.Denial) *models.APIKeyRecord {
	if denial != nil {
		return denial.Record
	}
	return authCtx.Record
}

func denialCode(reason string) string {
	switch reason {
	case auth.DenyMissingCredential, auth.DenyInvalidCredential:
		return apierrors.ErrCodeUnauthorized
	case auth.DenyInactiveCredential:
		return apierrors.ErrCodeForbidden
	case auth.DenyQuotaExceeded:
		return apierrors.ErrCodeQuotaExceeded
	default:
		return apierrors.ErrCodeInternal
	}
}

func parseGenerateRequest(r *http.Request) (*generateRequest, error) {
	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(contentType, "multipart/") {
		return parseMultipartRequest(r)
	}
	return parseJSONRequest(r)
}

func parseMultipartRequest(r *http.Request) (*generateRequest, error) {
	req := &generateRequest{Mode: models.ModeUnknown, fromMultipart: true}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return req, fmt.Errorf("Request body must be valid multipart form data.")
	}

	hasHTML := len(r.MultipartForm.File["html_file"]) > 0
	hasTemplate := len(r.MultipartForm.File["template_file"]) > 0
	if hasHTML {
		req.Mode = models.ModeHTMLUpload
	} else if hasTemplate {
		req.Mode = models.ModeTemplateUpload
	}
	if hasHTML == hasTemplate {
		return req, fmt.Errorf("Provide exactly one of 'html_file' or 'template_file'.")
	}

	req.Filename = r.FormValue("filename")
	return req, nil
}

// loadUploads reads the multipart file contents. It runs after the
// quota decision so an exhausted account is told 429 even when an
// optional upload is broken; only the source-exclusivity check comes
// earlier. JSON requests carry their content from the decode and are a
// no-op here.
func (req *generateRequest) loadUploads(r *http.Request) error {
	if !req.fromMultipart {
		return nil
	}

	if css, ok, err := readTextUpload(r, "css_file"); err != nil {
		return err
	} else if ok {
		req.CSS = css
	}

	if req.Mode == models.ModeHTMLUpload {
		html, _, err := readTextUpload(r, "html_file")
		if err != nil {
			return err
		}
		req.HTML = html
		return nil
	}

	content, _, err := readTextUpload(r, "template_file")
	if err != nil {
		return err
	}
	req.TemplateContent = content

	raw, ok, err := readTextUpload(r, "data_file")
	if err != nil {
		return err
	}
	if ok {
		if !json.Valid([]byte(raw)) {
			return fmt.Errorf("'data_file' must contain valid JSON.")
		}
		if err := json.Unmarshal([]byte(raw), &req.Data); err != nil {
			return fmt.Errorf("'data_file' must contain a JSON object.")
		}
	}
	return nil
}

func parseJSONRequest(r *http.Request) (*generateRequest, error) {
	req := &generateRequest{Mode: models.ModeUnknown}

	var body struct {
		HTML     string                 `json:"html"`
		CSS      string                 `json:"css"`
		Template string                 `json:"template"`
		// legacy alias for template
		TemplateName string                 `json:"template_name"`
		Data         map[string]interface{} `json:"data"`
		Filename     string                 `json:"filename"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes)).Decode(&body); err != nil {
		return req, fmt.Errorf("Request body must be valid JSON.")
	}

	if body.Template == "" && body.TemplateName != "" {
		body.Template = body.TemplateName
	}

	hasHTML := strings.TrimSpace(body.HTML) != ""
	hasTemplate := strings.TrimSpace(body.Template) != ""
	if hasHTML {
		req.Mode = models.ModeHTMLUpload
	} else if hasTemplate {
		req.Mode = models.ModeTemplateUpload
	}
	if hasHTML == hasTemplate {
		return req, fmt.Errorf("Provide exactly one of 'html' or 'template'.")
	}

	req.HTML = body.HTML
	req.CSS = body.CSS
	req.TemplateName = strings.TrimSpace(body.Template)
	req.Data = body.Data
	req.Filename = body.Filename
	return req, nil
}

func readTextUpload(r *http.Request, field string) (string, bool, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile {
			return "", false, nil
		}
		return "", false, fmt.Errorf("'%s' could not be read.", field)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return "", true, fmt.Errorf("'%s' could not be read.", field)
	}
	if len(raw) == 0 {
		return "", true, fmt.Errorf("'%s' must not be empty.", field)
	}
	if !utf8.Valid(raw) {
		return "", true, fmt.Errorf("'%s' must be UTF-8 text.", field)
	}
	return string(raw), true, nil
}
