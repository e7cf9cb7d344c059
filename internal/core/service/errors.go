package service

import (
	"errors"

	"github.com/rl1809/purchase-lifecycle/internal/core/domain"
)

var (
	ErrCartNotFound  = domain.NewError(domain.KindNotFound, "cart not found")
	ErrOrderNotFound = domain.NewError(domain.KindNotFound, "order not found")

	ErrPricingInconsistent   = errors.New("pricing result is inconsistent")
	ErrConvertedWithoutOrder = errors.New("cart is converted but no order references it")
)
