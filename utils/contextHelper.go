package utils

import (
	"context"

	"github.com/foodhouse/menucheck_backend/appctx"
)

var (
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
	ContextKeyRunActor      = appctx.ContextKeyRunActor
)

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

func GetRunActorFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyRunActor)
}

func SetRunActorInContext(ctx context.Context, actor string) context.Context {
	return appctx.Set(ctx, ContextKeyRunActor, actor)
}
