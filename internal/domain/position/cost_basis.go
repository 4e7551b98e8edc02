package position

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	vo "dizzycode.xyz/trading-engine/internal/domain/value_objects"
)

// ErrUnreconciled 成交記錄無法解釋目前持倉（例如手動轉入或機器人以外的交易）
// 呼叫方必須清空 avg_price / total_cost，而不是使用錯誤的值
var ErrUnreconciled = errors.New("trade history does not reconcile with holdings")

// DefaultEpsilon 持倉數量比對容差（絕對值下限，持倉大時按比例放大）
const DefaultEpsilon = 1e-8

// Basis 持倉成本基礎
type Basis struct {
	TotalCost float64 `json:"total_cost"`
	Amount    float64 `json:"amount"`
	AvgPrice  float64 `json:"avg_price"`
	LastID    string  `json:"last_id"`
}

// Tracker 依成交記錄重建平均成本
//
// 累進公式：
//
//	買入：cost += amount*price，amount += amount
//	賣出：依比例扣除成本，平均成本不變；全部賣出後成本歸零
type Tracker struct {
	epsilon decimal.Decimal
}

// NewTracker epsilon <= 0 時使用 DefaultEpsilon
func NewTracker(epsilon float64) *Tracker {
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}
	return &Tracker{epsilon: decimal.NewFromFloat(epsilon)}
}

type accumulator struct {
	amount decimal.Decimal
	cost   decimal.Decimal
	lastID string
}

func (a *accumulator) apply(t vo.TradeRecord, epsilon decimal.Decimal) {
	qty := decimal.NewFromFloat(t.Amount)

	switch t.Side {
	case vo.SideBuy:
		a.amount = a.amount.Add(qty)
		a.cost = a.cost.Add(decimal.NewFromFloat(t.Notional()))
	case vo.SideSell:
		if a.amount.IsPositive() {
			sold := decimal.Min(qty, a.amount)
			a.cost = a.cost.Sub(a.cost.Mul(sold).Div(a.amount))
		}
		a.amount = a.amount.Sub(qty)
		// 賣出超過已知持倉：更早的幣不在記錄中，從零開始
		if a.amount.LessThanOrEqual(epsilon) {
			a.amount = decimal.Zero
			a.cost = decimal.Zero
		}
	}
	a.lastID = t.ID
}

func (a *accumulator) basis() Basis {
	b := Basis{
		TotalCost: a.cost.InexactFloat64(),
		Amount:    a.amount.InexactFloat64(),
		LastID:    a.lastID,
	}
	if a.amount.IsPositive() {
		b.AvgPrice = a.cost.Div(a.amount).InexactFloat64()
	}
	return b
}

// matches |amount-held| <= max(eps, eps*|held|)
// 上億單位的持倉，float64 一個 ulp 就超過固定的 1e-8
func (tr *Tracker) matches(amount decimal.Decimal, held float64) bool {
	h := decimal.NewFromFloat(held)
	tolerance := decimal.Max(tr.epsilon, tr.epsilon.Mul(h.Abs()))
	return amount.Sub(h).Abs().LessThanOrEqual(tolerance)
}

// FromHistory 由完整成交記錄（舊到新）計算成本基礎
func (tr *Tracker) FromHistory(trades []vo.TradeRecord, held float64) (Basis, error) {
	var acc accumulator
	for _, t := range trades {
		acc.apply(t, tr.epsilon)
	}

	if !tr.matches(acc.amount, held) {
		return Basis{}, fmt.Errorf("history nets %s, holding %v: %w", acc.amount.String(), held, ErrUnreconciled)
	}
	return acc.basis(), nil
}

// Incremental 以前次成本基礎為起點，只套用 LastID 之後的成交
func (tr *Tracker) Incremental(prior Basis, trades []vo.TradeRecord, held float64) (Basis, error) {
	start := 0
	if prior.LastID != "" {
		start = -1
		for i, t := range trades {
			if t.ID == prior.LastID {
				start = i + 1
				break
			}
		}
		if start < 0 {
			return Basis{}, fmt.Errorf("checkpoint trade %q not in history: %w", prior.LastID, ErrUnreconciled)
		}
	}

	acc := accumulator{
		amount: decimal.NewFromFloat(prior.Amount),
		cost:   decimal.NewFromFloat(prior.TotalCost),
		lastID: prior.LastID,
	}
	for _, t := range trades[start:] {
		acc.apply(t, tr.epsilon)
	}

	if !tr.matches(acc.amount, held) {
		return Basis{}, fmt.Errorf("checkpoint %q plus newer trades nets %s, holding %v: %w",
			prior.LastID, acc.amount.String(), held, ErrUnreconciled)
	}
	return acc.basis(), nil
}

// Reconcile 選擇計算路徑
//
//   - 沒有持倉：回傳零成本
//   - 沒有前次成本：完整重建
//   - 持倉未變：沿用前次成本
//   - 持倉變動：增量計算，失敗時再嘗試完整重建
func (tr *Tracker) Reconcile(prior *Basis, trades []vo.TradeRecord, held float64) (Basis, error) {
	if tr.matches(decimal.Zero, held) {
		return Basis{}, nil
	}
	if prior == nil {
		return tr.FromHistory(trades, held)
	}
	if tr.matches(decimal.NewFromFloat(prior.Amount), held) {
		return *prior, nil
	}

	b, err := tr.Incremental(*prior, trades, held)
	if err == nil {
		return b, nil
	}
	if full, ferr := tr.FromHistory(trades, held); ferr == nil {
		return full, nil
	}
	return Basis{}, err
}

// Matches 持倉數量是否在容差內相等
func (tr *Tracker) Matches(amount, held float64) bool {
	return tr.matches(decimal.NewFromFloat(amount), held)
}

// BasisFromPair 由交易對現有欄位取得前次成本（沒有則為 nil）
// 成本對應的數量由 total_cost/avg_price 推回，不依賴已被行情更新的 total
func BasisFromPair(p vo.Pair) *Basis {
	if !p.HasCostBasis() || *p.AvgPrice <= 0 {
		return nil
	}
	amount := decimal.NewFromFloat(*p.TotalCost).Div(decimal.NewFromFloat(*p.AvgPrice))
	return &Basis{
		TotalCost: *p.TotalCost,
		Amount:    amount.InexactFloat64(),
		AvgPrice:  *p.AvgPrice,
		LastID:    p.LastID,
	}
}
