package services

import "context"

type contextKey string

const photoIDKey contextKey = "photo_id"

// WithPhotoID annotates context with the photo identifier being processed,
// so logging along the decode path can attribute its records even where no
// per-photo logger is in scope.
func WithPhotoID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, photoIDKey, id)
}

// PhotoIDFromContext extracts the photo identifier if present.
func PhotoIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(photoIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
