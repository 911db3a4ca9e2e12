package utils

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	ContextKeyChatId        contextKey = "chat_id"
	ContextKeyCorrelationId contextKey = "correlation_id"
)

func GetChatIdFromContext(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(ContextKeyChatId).(int64)
	return v, ok
}

func SetChatIdInContext(ctx context.Context, chatId int64) context.Context {
	return context.WithValue(ctx, ContextKeyChatId, chatId)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextKeyCorrelationId).(string)
	return v, ok
}

func SetCorrelationIdInContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyCorrelationId, id)
}

// CorrelationIdFromContextOrNew returns the request correlation id, minting
// one when the context carries none.
func CorrelationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}
