package strategy

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField 交易對或指標缺少評估所需欄位，本輪跳過
	ErrMissingField = errors.New("missing field")

	// ErrUnevaluable DCA 前置檢查未通過（已達最大層級或未跌破觸發點）
	ErrUnevaluable = errors.New("not evaluable")

	// ErrInvalidConfig 策略設定不合法
	ErrInvalidConfig = errors.New("invalid strategy config")
)

// MissingFieldError 帶有交易對與欄位名稱的缺欄錯誤
type MissingFieldError struct {
	Symbol string
	Field  string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: missing field %q", e.Symbol, e.Field)
}

func (e *MissingFieldError) Unwrap() error {
	return ErrMissingField
}

func missingField(symbol, field string) error {
	return &MissingFieldError{Symbol: symbol, Field: field}
}

func unevaluable(symbol, format string, args ...any) error {
	return fmt.Errorf("%s: %s: %w", symbol, fmt.Sprintf(format, args...), ErrUnevaluable)
}

func invalidConfig(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidConfig)
}
