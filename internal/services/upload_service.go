package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"relay-chat/internal/storage"
	relay_errors "relay-chat/pkg/errors"
)

// MaxAttachmentSize caps what a presign request may claim. The storage
// backend enforces it again via the signed Content-Length.
const MaxAttachmentSize = 10 << 20

// UploadService issues attachment content references. The upload itself
// happens client-to-storage; this service only validates and signs.
type UploadService struct {
	storage *storage.Client
}

func NewUploadService(storage *storage.Client) *UploadService {
	return &UploadService{storage: storage}
}

type PresignInput struct {
	FileName    string
	ContentType string
	Size        int64
}

type PresignResult struct {
	Key     string            `json:"key"`
	PutURL  string            `json:"put_url"`
	GetURL  string            `json:"get_url"`
	Headers map[string]string `json:"headers,omitempty"`
}

func (s *UploadService) CreatePresignedUpload(ctx context.Context, caller *Identity, in PresignInput) (PresignResult, error) {
	if s.storage == nil {
		return PresignResult{}, errors.New("object storage is not configured")
	}
	if caller == nil {
		return PresignResult{}, relay_errors.ErrNotAuthorized
	}
	name := strings.TrimSpace(in.FileName)
	if name == "" || in.ContentType == "" {
		return PresignResult{}, relay_errors.ErrInvalidInput
	}
	if in.Size <= 0 || in.Size > MaxAttachmentSize {
		return PresignResult{}, relay_errors.ErrInvalidInput
	}

	key := fmt.Sprintf("attachments/%s/%s%s", caller.UserID, uuid.New().String(), path.Ext(name))
	putURL, headers, err := s.storage.PresignPut(ctx, key, in.ContentType, in.Size)
	if err != nil {
		return PresignResult{}, err
	}
	getURL, err := s.storage.PresignGet(ctx, key)
	if err != nil {
		return PresignResult{}, err
	}
	return PresignResult{Key: key, PutURL: putURL, GetURL: getURL, Headers: headers}, nil
}
