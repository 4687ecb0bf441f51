package handlers

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/ashmitsharp/contaspiccioli-api/internal/models"
	"github.com/ashmitsharp/contaspiccioli-api/internal/services"
	"github.com/ashmitsharp/contaspiccioli-api/internal/utils"
)

const (
	// PresignedURLExpiry is how long a presigned upload URL stays valid
	PresignedURLExpiry = 15 * time.Minute
)

var (
	// AllowedContentTypes defines the content types that are allowed for upload
	AllowedContentTypes = map[string]bool{
		"text/csv":                 true,
		"text/plain":               true,
		"application/vnd.ms-excel": true,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	}
)

// Importer turns bank statements into transactions
type Importer interface {
	ImportStatement(ctx context.Context, content string, year, month int, format services.BankFormat) (*models.ImportResult, error)
	ImportFile(ctx context.Context, r io.Reader, filename, contentType string, year, month int, format services.BankFormat) (*models.ImportResult, error)
	ImportArchived(ctx context.Context, key string, year, month int, format services.BankFormat) (*models.ImportResult, error)
	ListUncategorized(ctx context.Context, year, month int) ([]models.Transaction, error)
	CategorizeAndLearn(ctx context.Context, transactionID, categoryID int64, learn bool) (*models.Transaction, error)
}

// StorageService interface defines methods for S3 operations
type StorageService interface {
	GenerateStatementKey(year, month int, filename string) (string, error)
	GeneratePresignedURL(ctx context.Context, key, contentType string, expiry time.Duration) (string, error)
}

// UploadHandler handles statement imports
type UploadHandler struct {
	importer Importer
	storage  StorageService
}

// NewUploadHandler creates an upload handler. storage may be nil, which
// disables presigned uploads.
func NewUploadHandler(importer Importer, storage StorageService) *UploadHandler {
	return &UploadHandler{importer: importer, storage: storage}
}

func (h *UploadHandler) Register(r fiber.Router) {
	g := r.Group("/bank")
	g.Post("/import", h.ImportStatement)
	g.Post("/upload", h.Upload)
	g.Get("/presigned-url", h.GetPresignedURL)
	g.Post("/import-archived", h.ImportArchived)
	g.Get("/uncategorized", h.ListUncategorized)
	r.Post("/transactions/:id/categorize", h.Categorize)
}

type ImportStatementRequest struct {
	Content string `json:"content"`
	Year    int    `json:"year"`
	Month   int    `json:"month"`
	Bank    string `json:"bank"`
}

// ImportStatement handles POST /v1/bank/import with the CSV text in the body
func (h *UploadHandler) ImportStatement(c fiber.Ctx) error {
	var req ImportStatementRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if req.Content == "" {
		return utils.NewBadRequestError("content is required", nil)
	}
	res, err := h.importer.ImportStatement(c.Context(), req.Content, req.Year, req.Month, services.ParseBankFormat(req.Bank))
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, res)
}

// Upload handles POST /v1/bank/upload (multipart: file, year, month, bank)
func (h *UploadHandler) Upload(c fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.NewBadRequestError("file is required", err.Error())
	}
	year, err := formInt(c, "year")
	if err != nil {
		return err
	}
	month, err := formInt(c, "month")
	if err != nil {
		return err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return utils.NewBadRequestError("failed to open uploaded file", err.Error())
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	res, err := h.importer.ImportFile(c.Context(), file, fileHeader.Filename, contentType, year, month,
		services.ParseBankFormat(c.FormValue("bank")))
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, res)
}

// GetPresignedURL generates a presigned URL for statement upload
// Query params: filename, content_type, year, month (all required)
// Returns: upload_url, file_key, expires_in
func (h *UploadHandler) GetPresignedURL(c fiber.Ctx) error {
	if h.storage == nil {
		return utils.NewBadRequestError("statement storage is not configured", nil)
	}

	filename := c.Query("filename")
	if filename == "" {
		return utils.NewBadRequestError("filename is required", nil)
	}
	contentType := c.Query("content_type")
	if contentType == "" {
		return utils.NewBadRequestError("content_type is required", nil)
	}
	if !AllowedContentTypes[contentType] {
		return utils.NewBadRequestError("unsupported file type", contentType)
	}
	year, err := queryInt(c, "year", currentYear())
	if err != nil {
		return err
	}
	month, err := queryInt(c, "month", int(now().Month()))
	if err != nil {
		return err
	}

	key, err := h.storage.GenerateStatementKey(year, month, filename)
	if err != nil {
		return utils.NewBadRequestError("failed to generate upload key", err.Error())
	}
	url, err := h.storage.GeneratePresignedURL(c.Context(), key, contentType, PresignedURLExpiry)
	if err != nil {
		return err
	}

	return utils.SuccessResponse(c, fiber.Map{
		"upload_url": url,
		"file_key":   key,
		"expires_in": int(PresignedURLExpiry.Seconds()),
	})
}

type ImportArchivedRequest struct {
	FileKey string `json:"file_key"`
	Year    int    `json:"year"`
	Month   int    `json:"month"`
	Bank    string `json:"bank"`
}

// ImportArchived handles POST /v1/bank/import-archived after a presigned upload
func (h *UploadHandler) ImportArchived(c fiber.Ctx) error {
	var req ImportArchivedRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if req.FileKey == "" {
		return utils.NewBadRequestError("file_key is required", nil)
	}
	res, err := h.importer.ImportArchived(c.Context(), req.FileKey, req.Year, req.Month, services.ParseBankFormat(req.Bank))
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, res)
}

// ListUncategorized handles GET /v1/bank/uncategorized?year=&month=
func (h *UploadHandler) ListUncategorized(c fiber.Ctx) error {
	year, err := queryInt(c, "year", 0)
	if err != nil {
		return err
	}
	month, err := queryInt(c, "month", 0)
	if err != nil {
		return err
	}
	txns, err := h.importer.ListUncategorized(c.Context(), year, month)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, fiber.Map{
		"transactions": txns,
		"count":        len(txns),
	})
}

type CategorizeRequest struct {
	CategoryID int64 `json:"category_id"`
	Learn      *bool `json:"learn"`
}

// Categorize handles POST /v1/transactions/:id/categorize. Learning is on
// unless the body says otherwise.
func (h *UploadHandler) Categorize(c fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req CategorizeRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if req.CategoryID == 0 {
		return utils.NewBadRequestError("category_id is required", nil)
	}
	learn := req.Learn == nil || *req.Learn
	txn, err := h.importer.CategorizeAndLearn(c.Context(), id, req.CategoryID, learn)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, txn)
}

func formInt(c fiber.Ctx, name string) (int, error) {
	raw := c.FormValue(name)
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, utils.NewBadRequestError(name+" is required", raw)
	}
	return v, nil
}
