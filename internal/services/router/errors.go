package router

import "errors"

var (
	ErrInvalidPool           = errors.New("invalid pool")
	ErrZeroAmount            = errors.New("zero or negative amount")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrUnsupportedCurve      = errors.New("unsupported curve type for quote")
	ErrNoPoolFound           = errors.New("no pool found")
	ErrNoRouteFound          = errors.New("no route found")
)
