package services

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Detected statement types.
const (
	TypeCSV  = "CSV"
	TypeXLSX = "XLSX"
)

// ValidationResult contains the results of file validation
type ValidationResult struct {
	Valid        bool     `json:"valid"`
	DetectedType string   `json:"detected_type,omitempty"`
	ContentType  string   `json:"content_type"`
	Size         int64    `json:"size"`
	Errors       []string `json:"errors"`
	Warnings     []string `json:"warnings"`
}

// Err joins the validation errors, or returns nil for a valid file.
func (r *ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("invalid statement file: %s", strings.Join(r.Errors, "; "))
}

// FileValidator checks uploaded bank statements before they are parsed
type FileValidator struct {
	maxSizeBytes int64
	allowedTypes map[string]bool
}

// xlsxMagic is the ZIP local file header every XLSX starts with.
var xlsxMagic = []byte{0x50, 0x4B, 0x03, 0x04}

// Allowed MIME types for statement uploads. Windows browsers send
// application/vnd.ms-excel for CSV files.
var allowedMimeTypes = map[string]bool{
	"text/csv":                 true,
	"text/plain":               true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
}

var allowedExtensions = map[string]bool{
	".csv":  true,
	".txt":  true,
	".xlsx": true,
}

// NewFileValidator creates a new file validator with the specified maximum file size
func NewFileValidator(maxSizeBytes int64) *FileValidator {
	return &FileValidator{
		maxSizeBytes: maxSizeBytes,
		allowedTypes: allowedMimeTypes,
	}
}

// ValidateFile reads at most one byte past the size limit and validates the
// content. The bytes read are returned so the caller can parse them.
func (v *FileValidator) ValidateFile(reader io.Reader, filename, contentType string) (*ValidationResult, []byte, error) {
	data, err := io.ReadAll(io.LimitReader(reader, v.maxSizeBytes+1))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file: %w", err)
	}
	return v.Validate(data, filename, contentType), data, nil
}

// Validate runs every check on data and collects all failures.
func (v *FileValidator) Validate(data []byte, filename, contentType string) *ValidationResult {
	result := &ValidationResult{
		Valid:       true,
		ContentType: contentType,
		Size:        int64(len(data)),
		Errors:      []string{},
		Warnings:    []string{},
	}
	fail := func(err error) {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
	}

	if err := v.ValidateFilename(filename); err != nil {
		fail(err)
	}
	if err := v.ValidateMimeType(contentType); err != nil {
		fail(err)
	}
	if err := v.ValidateFileSize(result.Size); err != nil {
		fail(err)
	}

	detected, err := v.ValidateMagicBytes(data)
	if err != nil {
		fail(err)
		return result
	}
	result.DetectedType = detected
	if !isContentTypeMatch(contentType, detected) {
		fail(errors.New("MIME type does not match file content"))
	}
	if detected == TypeCSV && !bytes.ContainsAny(data, ",;\t") {
		result.Warnings = append(result.Warnings, "no delimiter found, file has a single column")
	}
	return result
}

// ValidateFilename validates the filename for security issues
func (v *FileValidator) ValidateFilename(filename string) error {
	if filename == "" {
		return errors.New("filename cannot be empty")
	}
	if strings.Contains(filename, "..") {
		return errors.New("filename contains path traversal")
	}
	if strings.Contains(filename, "\x00") {
		return errors.New("filename contains null bytes")
	}
	if strings.HasPrefix(filename, "/") || strings.HasPrefix(filename, "\\") {
		return errors.New("filename cannot be absolute path")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return errors.New("filename must have an extension")
	}
	if !allowedExtensions[ext] {
		return fmt.Errorf("unsupported file extension: %s", ext)
	}
	return nil
}

// ValidateMimeType validates the MIME type is allowed. Parameters such as
// charset are ignored.
func (v *FileValidator) ValidateMimeType(contentType string) error {
	if contentType == "" {
		return errors.New("MIME type cannot be empty")
	}
	if !v.allowedTypes[mediaType(contentType)] {
		return fmt.Errorf("unsupported MIME type: %s", contentType)
	}
	return nil
}

// ValidateMagicBytes detects the statement type from its content
func (v *FileValidator) ValidateMagicBytes(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty file")
	}
	if bytes.HasPrefix(data, xlsxMagic) {
		return TypeXLSX, nil
	}
	if isTextContent(data) {
		return TypeCSV, nil
	}
	return "", errors.New("unsupported file type based on content")
}

// ValidateFileSize validates the file size is within limits
func (v *FileValidator) ValidateFileSize(size int64) error {
	if size < 0 {
		return errors.New("invalid file size")
	}
	if size == 0 {
		return errors.New("empty file")
	}
	if size > v.maxSizeBytes {
		return fmt.Errorf("file size exceeds maximum allowed size (%d bytes)", v.maxSizeBytes)
	}
	return nil
}

func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

// isContentTypeMatch checks if the MIME type matches the detected file type
func isContentTypeMatch(contentType, detectedType string) bool {
	mt := mediaType(contentType)
	switch detectedType {
	case TypeCSV:
		return mt == "text/csv" || mt == "text/plain" || mt == "application/vnd.ms-excel"
	case TypeXLSX:
		return mt == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" ||
			mt == "application/vnd.ms-excel"
	default:
		return false
	}
}

// isTextContent reports whether the first 512 bytes are mostly printable
// UTF-8. A rune cut by the sample boundary is ignored.
func isTextContent(data []byte) bool {
	sample := data
	if len(sample) > 512 {
		sample = sample[:512]
	}
	if bytes.IndexByte(sample, 0x00) >= 0 {
		return false
	}

	printable, total := 0, 0
	for len(sample) > 0 {
		r, size := utf8.DecodeRune(sample)
		if r == utf8.RuneError && size == 1 && len(sample) < utf8.UTFMax && len(data) > 512 {
			break
		}
		sample = sample[size:]
		total++
		if r != utf8.RuneError && (unicode.IsPrint(r) || r == '\t' || r == '\n' || r == '\r') {
			printable++
		}
	}
	if total == 0 {
		return false
	}
	return float64(printable)/float64(total) > 0.95
}
