package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/periospot/content-cloud/internal/content"
	"github.com/periospot/content-cloud/internal/textutil"
)

// maxUploadBytes caps decoded image size at 10 MB.
const maxUploadBytes = 10 << 20

// ImageTools exposes image upload and metadata management over MCP.
type ImageTools struct {
	store content.Store
	blobs content.BlobStore
}

// RegisterImageTools adds the image tools to the registry.
func RegisterImageTools(r *Registry, store content.Store, blobs content.BlobStore) {
	t := &ImageTools{store: store, blobs: blobs}

	r.MustRegister(Tool{
		Name:        "upload_image",
		Description: "Upload an image from base64 data (data URL prefix accepted) and record its metadata.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"data":     map[string]any{"type": "string", "description": "Base64 image data, with or without a data URL prefix"},
				"filename": map[string]any{"type": "string", "description": "Original filename, used to derive the stored name and MIME type"},
				"alt_text": map[string]any{"type": "string", "description": "Alt text for accessibility"},
				"caption":  map[string]any{"type": "string", "description": "Optional caption"},
				"folder":   map[string]any{"type": "string", "description": "Storage folder (default 'uploads')"},
			},
			"required": []string{"data", "filename"},
		},
	}, t.uploadImage)

	r.MustRegister(Tool{
		Name:        "list_images",
		Description: "List uploaded images with optional folder and search filters.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"folder": map[string]any{"type": "string", "description": "Filter by storage folder"},
				"search": map[string]any{"type": "string", "description": "Match against filename and alt text"},
				"limit":  map[string]any{"type": "integer", "description": "Page size (default 20, max 100)"},
				"offset": map[string]any{"type": "integer", "description": "Page offset"},
			},
		},
	}, t.listImages)

	r.MustRegister(Tool{
		Name:        "get_image",
		Description: "Fetch image metadata by id.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id": map[string]any{"type": "string", "description": "Image id"},
			},
			"required": []string{"id"},
		},
	}, t.getImage)

	r.MustRegister(Tool{
		Name:        "update_image",
		Description: "Update image metadata (alt text, caption, folder). Only supplied fields change.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id":       map[string]any{"type": "string", "description": "Image id"},
				"alt_text": map[string]any{"type": "string", "description": "New alt text"},
				"caption":  map[string]any{"type": "string", "description": "New caption"},
				"folder":   map[string]any{"type": "string", "description": "New folder"},
			},
			"required": []string{"id"},
		},
	}, t.updateImage)

	r.MustRegister(Tool{
		Name:        "delete_image",
		Description: "Delete an image and its stored bytes by id.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id": map[string]any{"type": "string", "description": "Image id"},
			},
			"required": []string{"id"},
		},
	}, t.deleteImage)
}

func (t *ImageTools) uploadImage(ctx context.Context, arguments json.RawMessage) (any, error) {
	var args struct {
		Data     string `json:"data"`
		Filename string `json:"filename"`
		AltText  string `json:"alt_text"`
		Caption  string `json:"caption"`
		Folder   string `json:"folder"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if args.Data == "" || args.Filename == "" {
		return nil, errors.New("data and filename are required")
	}

	raw, err := base64.StdEncoding.DecodeString(textutil.StripDataURLPrefix(args.Data))
	if err != nil {
		return nil, fmt.Errorf("invalid base64 data: %w", err)
	}
	if len(raw) > maxUploadBytes {
		return nil, fmt.Errorf("image exceeds %d byte limit", maxUploadBytes)
	}

	folder := args.Folder
	if folder == "" {
		folder = "uploads"
	}

	// Prefix with a short unique id so repeated uploads of the same
	// filename never clobber each other.
	safeName := textutil.SanitizeFilename(args.Filename)
	storedName := uuid.NewString()[:8] + "-" + safeName

	url, storagePath, err := t.blobs.Save(ctx, folder, storedName, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	img := &content.Image{
		URL:              url,
		StoragePath:      storagePath,
		Filename:         storedName,
		OriginalFilename: args.Filename,
		AltText:          args.AltText,
		Folder:           folder,
		MimeType:         textutil.MIMEType(args.Filename),
		SizeBytes:        int64(len(raw)),
	}
	if args.Caption != "" {
		img.Caption = &args.Caption
	}

	created, err := t.store.InsertImage(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("failed to record image: %w", err)
	}

	return map[string]any{
		"image":   created,
		"message": fmt.Sprintf("Image uploaded to %s.", created.URL),
	}, nil
}

func (t *ImageTools) listImages(ctx context.Context, arguments json.RawMessage) (any, error) {
	var args struct {
		Folder string `json:"folder"`
		Search string `json:"search"`
		Limit  int    `json:"limit"`
		Offset int    `json:"offset"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	images, total, err := t.store.ListImages(ctx, content.ImageFilter{
		Folder: args.Folder,
		Search: args.Search,
		Limit:  args.Limit,
		Offset: args.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	return map[string]any{
		"images": images,
		"count":  len(images),
		"total":  total,
	}, nil
}

func (t *ImageTools) getImage(ctx context.Context, arguments json.RawMessage) (any, error) {
	var args struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if args.ID == "" {
		return nil, errors.New("id is required")
	}

	img, err := t.store.GetImage(ctx, args.ID)
	if errors.Is(err, content.ErrNotFound) {
		return nil, errors.New("image not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	return map[string]any{"image": img}, nil
}

func (t *ImageTools) updateImage(ctx context.Context, arguments json.RawMessage) (any, error) {
	var args struct {
		ID      string  `json:"id"`
		AltText *string `json:"alt_text"`
		Caption *string `json:"caption"`
		Folder  *string `json:"folder"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if args.ID == "" {
		return nil, errors.New("id is required")
	}

	err := t.store.UpdateImage(ctx, args.ID, args.AltText, args.Caption, args.Folder)
	if errors.Is(err, content.ErrNotFound) {
		return nil, errors.New("image not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update image: %w", err)
	}

	return map[string]any{"message": "Image updated."}, nil
}

func (t *ImageTools) deleteImage(ctx context.Context, arguments json.RawMessage) (any, error) {
	var args struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if args.ID == "" {
		return nil, errors.New("id is required")
	}

	img, err := t.store.GetImage(ctx, args.ID)
	if errors.Is(err, content.ErrNotFound) {
		return nil, errors.New("image not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	if err := t.store.DeleteImage(ctx, args.ID); err != nil {
		return nil, fmt.Errorf("failed to delete image: %w", err)
	}
	// Metadata row is gone; a leftover blob is harmless compared to a
	// dangling database record, so the blob delete comes second.
	if err := t.blobs.Remove(ctx, img.StoragePath); err != nil {
		return nil, fmt.Errorf("image record deleted but blob removal failed: %w", err)
	}

	return map[string]any{"message": "Image deleted."}, nil
}
