package services

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const xlsxMime = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func TestValidateFilename_Valid(t *testing.T) {
	validator := NewFileValidator(5 * 1024 * 1024)

	for _, filename := range []string{
		"estratto.csv", "movimenti.xlsx", "export.txt", "Estratto Conto.CSV", "bbva_2026-01.csv",
	} {
		t.Run(filename, func(t *testing.T) {
			assert.NoError(t, validator.ValidateFilename(filename))
		})
	}
}

func TestValidateFilename_Invalid(t *testing.T) {
	validator := NewFileValidator(5 * 1024 * 1024)

	tests := []struct {
		name     string
		filename string
		wantErr  string
	}{
		{"empty", "", "filename cannot be empty"},
		{"path traversal", "../../../etc/passwd.csv", "path traversal"},
		{"windows traversal", "..\\..\\file.csv", "path traversal"},
		{"null byte", "file\x00.csv", "null bytes"},
		{"absolute", "/etc/statement.csv", "absolute path"},
		{"windows absolute", "\\server\\statement.csv", "absolute path"},
		{"no extension", "statement", "must have an extension"},
		{"pdf", "statement.pdf", "unsupported file extension: .pdf"},
		{"executable", "statement.exe", "unsupported file extension"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateFilename(tt.filename)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateMimeType(t *testing.T) {
	validator := NewFileValidator(5 * 1024 * 1024)

	for _, mt := range []string{"text/csv", "text/csv; charset=utf-8", "text/plain", "application/vnd.ms-excel", xlsxMime} {
		assert.NoError(t, validator.ValidateMimeType(mt), mt)
	}

	err := validator.ValidateMimeType("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MIME type cannot be empty")

	for _, mt := range []string{"application/pdf", "image/jpeg", "application/x-msdownload"} {
		err := validator.ValidateMimeType(mt)
		require.Error(t, err, mt)
		assert.Contains(t, err.Error(), "unsupported MIME type")
	}
}

func TestValidateMagicBytes(t *testing.T) {
	validator := NewFileValidator(5 * 1024 * 1024)

	tests := []struct {
		name    string
		data    []byte
		want    string
		wantErr bool
	}{
		{name: "ascii csv", data: []byte("Data;Descrizione;Importo\n"), want: TypeCSV},
		{name: "utf8 csv", data: []byte("Data;Descrizione;Importo\n01/02/2026;Caffè città;-1,20 €\n"), want: TypeCSV},
		{name: "xlsx", data: []byte{0x50, 0x4B, 0x03, 0x04, 0x14, 0x00}, want: TypeXLSX},
		{name: "pdf is binary", data: []byte{0x25, 0x50, 0x44, 0x46, 0x00, 0x01, 0x02}, wantErr: true},
		{name: "binary", data: []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00}, wantErr: true},
		{name: "empty", data: nil, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validator.ValidateMagicBytes(tt.data)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsTextContent_MultibyteAtSampleBoundary(t *testing.T) {
	// "è" is two bytes; place it across byte 512.
	data := append(bytes.Repeat([]byte("a"), 511), []byte("èèè")...)
	assert.True(t, isTextContent(data))
}

func TestValidateFileSize(t *testing.T) {
	validator := NewFileValidator(1024)

	assert.NoError(t, validator.ValidateFileSize(1))
	assert.NoError(t, validator.ValidateFileSize(1024))

	err := validator.ValidateFileSize(1025)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum")

	err = validator.ValidateFileSize(0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty file")

	err = validator.ValidateFileSize(-1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid file size")
}

func TestValidateFile_ValidCSV(t *testing.T) {
	validator := NewFileValidator(5 * 1024 * 1024)
	content := "Data;Descrizione;Importo\n05/01/2026;PAGAMENTO POS ESSELUNGA;-45,30\n"

	result, data, err := validator.ValidateFile(strings.NewReader(content), "estratto.csv", "text/csv")
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.NoError(t, result.Err())
	assert.Equal(t, TypeCSV, result.DetectedType)
	assert.Equal(t, int64(len(content)), result.Size)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, content, string(data))
}

func TestValidateFile_CSVFromWindowsBrowser(t *testing.T) {
	validator := NewFileValidator(5 * 1024 * 1024)
	result, _, err := validator.ValidateFile(strings.NewReader("a,b,c\n"), "estratto.csv", "application/vnd.ms-excel")
	require.NoError(t, err)
	assert.True(t, result.Valid)
}

func TestValidateFile_ValidXLSX(t *testing.T) {
	validator := NewFileValidator(5 * 1024 * 1024)
	data := xlsxStatement(t, [][]interface{}{{"Data", "Descrizione", "Importo"}})

	result, _, err := validator.ValidateFile(bytes.NewReader(data), "movimenti.xlsx", xlsxMime)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, TypeXLSX, result.DetectedType)
}

func TestValidateFile_MismatchedMimeAndContent(t *testing.T) {
	validator := NewFileValidator(5 * 1024 * 1024)

	result, _, err := validator.ValidateFile(bytes.NewReader(xlsxMagic), "fake.csv", "text/csv")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors[len(result.Errors)-1], "MIME type does not match")
	assert.Error(t, result.Err())
}

func TestValidateFile_EmptyFile(t *testing.T) {
	validator := NewFileValidator(5 * 1024 * 1024)

	result, _, err := validator.ValidateFile(strings.NewReader(""), "empty.csv", "text/csv")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors[0], "empty file")
}

func TestValidateFile_TooLargeStopsReading(t *testing.T) {
	validator := NewFileValidator(10)

	result, data, err := validator.ValidateFile(strings.NewReader(strings.Repeat("a", 100)), "large.csv", "text/csv")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors[0], "exceeds maximum")
	assert.Len(t, data, 11)
}

func TestValidateFile_SingleColumnWarning(t *testing.T) {
	validator := NewFileValidator(1024)

	result, _, err := validator.ValidateFile(strings.NewReader("solo una colonna\n"), "x.csv", "text/csv")
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Len(t, result.Warnings, 1)
}

func TestValidateFile_MultipleErrors(t *testing.T) {
	validator := NewFileValidator(5 * 1024 * 1024)

	result, _, err := validator.ValidateFile(strings.NewReader("a,b\n"), "../malicious.exe", "application/x-msdownload")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.GreaterOrEqual(t, len(result.Errors), 2, "Should have multiple errors")
}

func TestValidateFile_ReadError(t *testing.T) {
	validator := NewFileValidator(5 * 1024 * 1024)

	_, _, err := validator.ValidateFile(&errorReader{err: io.ErrUnexpectedEOF}, "test.csv", "text/csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read file")
}

// errorReader is a helper for testing read errors
type errorReader struct {
	err error
}

func (r *errorReader) Read(p []byte) (n int, err error) {
	return 0, r.err
}
