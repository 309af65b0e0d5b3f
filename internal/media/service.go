package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/arepera-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/arepera-backend/pkg/errors"
)

// DefaultMaxUploadBytes caps product images at 5 MB.
const DefaultMaxUploadBytes int64 = 5 * 1024 * 1024

const sniffLen = 512

type fileStore interface {
	Put(ctx context.Context, key string, content io.Reader) (string, error)
}

// UploadInput describes a single multipart file.
type UploadInput struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// UploadResult is returned to the admin UI.
type UploadResult struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Service stores product images.
type Service interface {
	Upload(ctx context.Context, caller auth.Caller, input UploadInput) (*UploadResult, error)
	MaxUploadBytes() int64
}

type service struct {
	store    fileStore
	maxBytes int64
	now      func() time.Time
}

// NewService constructs a media service backed by store.
func NewService(store fileStore, maxBytes int64) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("file store required")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &service{store: store, maxBytes: maxBytes, now: time.Now}, nil
}

func (s *service) MaxUploadBytes() int64 {
	return s.maxBytes
}

func (s *service) Upload(ctx context.Context, caller auth.Caller, input UploadInput) (*UploadResult, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	if input.Content == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is required")
	}
	if input.Size > s.maxBytes {
		return nil, tooLarge(s.maxBytes)
	}
	ext, ok := normalizedExtension(input.Filename)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file extension must be .jpg, .jpeg, .png or .webp")
	}

	// one byte past the limit catches bodies whose declared size was wrong
	body, err := io.ReadAll(io.LimitReader(input.Content, s.maxBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload")
	}
	if int64(len(body)) > s.maxBytes {
		return nil, tooLarge(s.maxBytes)
	}
	if len(body) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is empty")
	}

	head := body
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	contentType, ok := sniffMimeType(head)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only jpeg, png and webp images are allowed").
			WithDetails(map[string]any{"detected": contentType})
	}

	name := strconv.FormatInt(s.now().UnixMilli(), 10) + "-" + uuid.NewString() + ext
	url, err := s.store.Put(ctx, name, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store upload")
	}

	return &UploadResult{
		URL:         url,
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(body)),
	}, nil
}

func tooLarge(limit int64) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "file too large").
		WithDetails(map[string]any{"maxBytes": limit})
}
