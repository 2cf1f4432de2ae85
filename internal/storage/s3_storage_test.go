package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Storage_ObjectURL(t *testing.T) {
	direct := NewS3Storage("ap-south-1", "bazaar-reports", "AKIATEST", "secret", "")
	assert.Equal(t, "https://bazaar-reports.s3.ap-south-1.amazonaws.com/reports/refunds-2026-01-18.xlsx",
		direct.objectURL("reports/refunds-2026-01-18.xlsx"))

	cdn := NewS3Storage("ap-south-1", "bazaar-reports", "AKIATEST", "secret", "https://cdn.example.com/")
	assert.Equal(t, "https://cdn.example.com/shopping-lists/a.jpg", cdn.objectURL("shopping-lists/a.jpg"))
}

func TestS3Storage_PresignPhotoUpload(t *testing.T) {
	s := NewS3Storage("ap-south-1", "bazaar-media", "AKIATEST", "secret", "https://cdn.example.com")

	resp, err := s.PresignPhotoUpload(context.Background(), "List.JPG", "image/jpeg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.Key, ShoppingListPhotoFolder+"/"))
	assert.True(t, strings.HasSuffix(resp.Key, ".jpg"))
	assert.Equal(t, "https://cdn.example.com/"+resp.Key, resp.FileURL)
	assert.Contains(t, resp.UploadURL, "X-Amz-Signature")

	_, err = s.PresignPhotoUpload(context.Background(), "list.pdf", "application/pdf")
	assert.Error(t, err)
}
