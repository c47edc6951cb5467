package broker

import (
	"errors"
	"fmt"
)

// ErrNoData marks a bar or price fetch that returned nothing usable. The
// caller skips the symbol or position for the cycle; no retry within it.
var ErrNoData = errors.New("broker: no data")

// RejectReason enumerates broker-specific order rejections, surfaced verbatim
// to the caller.
type RejectReason string

const (
	RejectRequote            RejectReason = "requote"
	RejectInsufficientMargin RejectReason = "insufficient_margin"
	RejectInvalidStops       RejectReason = "invalid_stops"
	RejectInvalidVolume      RejectReason = "invalid_volume"
	RejectMarketClosed       RejectReason = "market_closed"
	RejectUnsupportedFill    RejectReason = "unsupported_fill_mode"
	RejectUnknown            RejectReason = "rejected"
)

// RejectError is a structured order/close rejection. Only a requote may be
// retried, once, with a refreshed price.
type RejectError struct {
	Reason RejectReason
	Detail string
}

func (e *RejectError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("broker rejected order: %s", e.Reason)
	}
	return fmt.Sprintf("broker rejected order: %s: %s", e.Reason, e.Detail)
}

// IsRequote reports whether the error is a retryable requote rejection.
func IsRequote(err error) bool {
	var reject *RejectError
	return errors.As(err, &reject) && reject.Reason == RejectRequote
}
