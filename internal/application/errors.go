package application

import "errors"

var (
	// ErrEvaluation 策略評估時的非預期錯誤，該交易對本輪跳過並要求重新載入K線
	ErrEvaluation = errors.New("strategy evaluation failed")

	// ErrSubmission 交易所拒絕下單，下一輪再考慮
	ErrSubmission = errors.New("order submission failed")

	// ErrPersistence 狀態寫入失敗，交由呼叫方決定重試或終止
	ErrPersistence = errors.New("state persistence failed")
)
