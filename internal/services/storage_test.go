package services

import (
	"context"
	"io"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const localStackEndpoint = "http://localhost:4566"

// newLocalStackStorage returns a storage service against LocalStack, or skips
// when TEST_S3_ENDPOINT is not set.
func newLocalStackStorage(t *testing.T) *StorageService {
	t.Helper()
	endpoint := os.Getenv("TEST_S3_ENDPOINT")
	if endpoint == "" {
		t.Skip("TEST_S3_ENDPOINT not set")
	}

	service, err := NewStorageService(context.Background(), "contaspiccioli-statements", "eu-south-1", endpoint)
	require.NoError(t, err)

	// Ignore error if bucket already exists
	_, _ = service.s3Client.CreateBucket(context.Background(), &s3.CreateBucketInput{
		Bucket: aws.String(service.bucket),
	})
	return service
}

func TestNewStorageService(t *testing.T) {
	tests := []struct {
		name     string
		bucket   string
		region   string
		endpoint string
		wantErr  bool
	}{
		{name: "localstack", bucket: "statements", region: "eu-south-1", endpoint: localStackEndpoint},
		{name: "aws", bucket: "statements", region: "eu-west-1"},
		{name: "empty bucket", region: "eu-south-1", endpoint: localStackEndpoint, wantErr: true},
		{name: "empty region", bucket: "statements", endpoint: localStackEndpoint, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, err := NewStorageService(context.Background(), tt.bucket, tt.region, tt.endpoint)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, service)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, service.s3Client)
			assert.Equal(t, tt.bucket, service.bucket)
			assert.Equal(t, tt.region, service.region)
		})
	}
}

func TestGenerateStatementKey(t *testing.T) {
	service := &StorageService{now: func() time.Time { return time.Unix(1767225600, 0) }}

	tests := []struct {
		name     string
		year     int
		month    int
		filename string
		pattern  string
		wantErr  bool
	}{
		{
			name: "plain name", year: 2026, month: 1, filename: "estratto.csv",
			pattern: `^statements/2026/01/1767225600-[0-9a-f]{8}-estratto\.csv$`,
		},
		{
			name: "spaces and symbols", year: 2026, month: 11, filename: "Estratto Conto@Nov.XLSX",
			pattern: `^statements/2026/11/1767225600-[0-9a-f]{8}-Estratto-Conto-Nov\.xlsx$`,
		},
		{
			name: "directory stripped", year: 2026, month: 3, filename: "../../etc/passwd.csv",
			pattern: `^statements/2026/03/1767225600-[0-9a-f]{8}-passwd\.csv$`,
		},
		{name: "empty filename", year: 2026, month: 1, wantErr: true},
		{name: "bad month", year: 2026, month: 13, filename: "a.csv", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := service.GenerateStatementKey(tt.year, tt.month, tt.filename)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Empty(t, key)
				return
			}
			require.NoError(t, err)
			assert.Regexp(t, regexp.MustCompile(tt.pattern), key)
		})
	}
}

func TestGenerateStatementKey_Unique(t *testing.T) {
	service := &StorageService{}
	a, err := service.GenerateStatementKey(2026, 1, "a.csv")
	require.NoError(t, err)
	b, err := service.GenerateStatementKey(2026, 1, "a.csv")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

// Presigning is local computation, so static LocalStack credentials suffice.
func TestGeneratePresignedURL(t *testing.T) {
	service, err := NewStorageService(context.Background(), "statements", "eu-south-1", localStackEndpoint)
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		name        string
		key         string
		contentType string
		expiry      time.Duration
		wantErr     bool
	}{
		{name: "csv", key: "statements/2026/01/x.csv", contentType: "text/csv", expiry: 15 * time.Minute},
		{name: "no content type", key: "statements/2026/01/x.xlsx", expiry: time.Hour},
		{name: "empty key", contentType: "text/csv", expiry: time.Minute, wantErr: true},
		{name: "zero expiry", key: "statements/2026/01/x.csv", wantErr: true},
		{name: "negative expiry", key: "statements/2026/01/x.csv", expiry: -time.Minute, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url, err := service.GeneratePresignedURL(ctx, tt.key, tt.contentType, tt.expiry)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Empty(t, url)
				return
			}
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(url, localStackEndpoint))
			assert.Contains(t, url, tt.key)
			assert.Contains(t, url, "X-Amz-Signature")
		})
	}
}

func TestStorageService_UninitializedClient(t *testing.T) {
	service := &StorageService{bucket: "statements", region: "eu-south-1"}
	ctx := context.Background()

	_, err := service.GeneratePresignedURL(ctx, "k", "text/csv", time.Minute)
	assert.Error(t, err)
	assert.Error(t, service.UploadFile(ctx, "k", strings.NewReader("x"), "text/csv"))
	_, err = service.DownloadFile(ctx, "k")
	assert.Error(t, err)
	assert.Error(t, service.DeleteFile(ctx, "k"))

	assert.EqualError(t, service.DeleteFile(ctx, ""), "key cannot be empty")
}

func TestStorageService_Integration(t *testing.T) {
	service := newLocalStackStorage(t)
	ctx := context.Background()

	key, err := service.GenerateStatementKey(2026, 1, "integration.csv")
	require.NoError(t, err)

	content := "Data;Descrizione;Importo\n05/01/2026;TEST;-1,00\n"
	require.NoError(t, service.UploadFile(ctx, key, strings.NewReader(content), "text/csv"))

	reader, err := service.DownloadFile(ctx, key)
	require.NoError(t, err)
	got, err := io.ReadAll(reader)
	reader.Close()
	require.NoError(t, err)
	assert.Equal(t, content, string(got))

	require.NoError(t, service.DeleteFile(ctx, key))
	_, err = service.DownloadFile(ctx, key)
	assert.Error(t, err, "File should not exist after deletion")
}
