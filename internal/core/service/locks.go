package service

import (
	"go.uber.org/zap"

	"github.com/rl1809/purchase-lifecycle/internal/core/domain"
)

func cartLockKey(id domain.CartID) string {
	return "lock:cart:" + id.String()
}

func orderLockKey(id domain.OrderID) string {
	return "lock:order:" + id.String()
}

func nopIfNil(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
