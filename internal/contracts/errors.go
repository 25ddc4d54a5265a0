package contracts

import (
	"errors"
	"fmt"
)

// ⭐ SSOT: 에러 분류는 여기서만
//
//   ConfigurationError  invalid parameters, raised eagerly, fatal for the run
//   DataError           bad input for a single call, recoverable by the caller
//   RejectionError      a candidate that must be excluded, never escapes the builder

// ErrRunNotFound is returned by repositories when no screening run matches
var ErrRunNotFound = errors.New("screen run not found")

// ConfigurationError 설정 오류 (프로그램 중단)
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Message)
}

// DataError 입력 데이터 오류 (호출 단위)
type DataError struct {
	Op      string
	Message string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("data: %s: %s", e.Op, e.Message)
}

// RejectReason is a machine-readable reason a candidate was excluded
type RejectReason string

const (
	RejectLegType            RejectReason = "leg_type"
	RejectMixedUnderlying    RejectReason = "mixed_underlying"
	RejectMixedExpiration    RejectReason = "mixed_expiration"
	RejectStrikeOrder        RejectReason = "strike_order"
	RejectWingWidth          RejectReason = "wing_width"
	RejectNonPositiveCredit  RejectReason = "non_positive_credit"
	RejectCreditExceedsWidth RejectReason = "credit_exceeds_width"
)

// RejectionError 후보 제외 (로그 + 메트릭, 에러로 전파 안 함)
type RejectionError struct {
	Reason  RejectReason
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("rejected (%s): %s", e.Reason, e.Message)
}
