package strategy

import (
	"fmt"
	"strconv"
	"strings"

	vo "dizzycode.xyz/trading-engine/internal/domain/value_objects"
)

// OperandKind 運算元類型
type OperandKind int

const (
	OperandConst OperandKind = iota
	OperandField
	OperandIndicator
)

// Operand 條件的一側：常數、交易對欄位或技術指標
type Operand struct {
	Kind  OperandKind
	Value float64
	Name  string
}

// ParseOperand 解析設定檔中的運算元（數字、數字字串或名稱）
func ParseOperand(raw any) (Operand, error) {
	switch v := raw.(type) {
	case int:
		return Operand{Kind: OperandConst, Value: float64(v)}, nil
	case int64:
		return Operand{Kind: OperandConst, Value: float64(v)}, nil
	case float64:
		return Operand{Kind: OperandConst, Value: v}, nil
	case string:
		name := strings.TrimSpace(v)
		if name == "" {
			return Operand{}, invalidConfig("empty operand")
		}
		if f, err := strconv.ParseFloat(name, 64); err == nil {
			return Operand{Kind: OperandConst, Value: f}, nil
		}
		if vo.IsPairField(name) {
			return Operand{Kind: OperandField, Name: name}, nil
		}
		return Operand{Kind: OperandIndicator, Name: name}, nil
	default:
		return Operand{}, invalidConfig("unsupported operand %v (%T)", raw, raw)
	}
}

func (o Operand) String() string {
	if o.Kind == OperandConst {
		return strconv.FormatFloat(o.Value, 'f', -1, 64)
	}
	return o.Name
}

// resolve 取值；extra 覆蓋交易對欄位（例如賣出條件算出的 percent_change）
func (o Operand) resolve(pair vo.Pair, indicators vo.IndicatorSnapshot, extra map[string]float64) (float64, error) {
	switch o.Kind {
	case OperandConst:
		return o.Value, nil
	case OperandField:
		if v, ok := extra[o.Name]; ok {
			return v, nil
		}
		if v, ok := pair.Field(o.Name); ok {
			return v, nil
		}
	case OperandIndicator:
		if v, ok := indicators.Get(o.Name); ok {
			return v, nil
		}
	}
	return 0, missingField(pair.Symbol, o.Name)
}

// Comparator 比較運算子
type Comparator string

const (
	LessThan       Comparator = "<"
	LessOrEqual    Comparator = "<="
	GreaterThan    Comparator = ">"
	GreaterOrEqual Comparator = ">="
	Equal          Comparator = "=="
	NotEqual       Comparator = "!="
)

// ParseComparator 解析運算子
func ParseComparator(s string) (Comparator, error) {
	switch c := Comparator(strings.TrimSpace(s)); c {
	case LessThan, LessOrEqual, GreaterThan, GreaterOrEqual, Equal, NotEqual:
		return c, nil
	case "=":
		return Equal, nil
	default:
		return "", invalidConfig("unknown comparator %q", s)
	}
}

func (c Comparator) compare(a, b float64) bool {
	switch c {
	case LessThan:
		return a < b
	case LessOrEqual:
		return a <= b
	case GreaterThan:
		return a > b
	case GreaterOrEqual:
		return a >= b
	case Equal:
		return a == b
	case NotEqual:
		return a != b
	default:
		return false
	}
}

// PredicateConfig 設定檔中的單一條件
type PredicateConfig struct {
	Left   any     `yaml:"left" json:"left"`
	Op     string  `yaml:"op" json:"op"`
	Right  any     `yaml:"right" json:"right"`
	Offset float64 `yaml:"offset" json:"offset"`
}

// Predicate 已解析的條件：Left Op Right（Right 依方向偏移 Offset%）
//
// 買方比較 right*(1-offset/100)，賣方比較 right*(1+offset/100)。
type Predicate struct {
	Left   Operand
	Op     Comparator
	Right  Operand
	Offset float64
}

// NewPredicate 由設定建立條件
func NewPredicate(cfg PredicateConfig) (Predicate, error) {
	left, err := ParseOperand(cfg.Left)
	if err != nil {
		return Predicate{}, fmt.Errorf("left: %w", err)
	}
	op, err := ParseComparator(cfg.Op)
	if err != nil {
		return Predicate{}, err
	}
	right, err := ParseOperand(cfg.Right)
	if err != nil {
		return Predicate{}, fmt.Errorf("right: %w", err)
	}
	return Predicate{Left: left, Op: op, Right: right, Offset: cfg.Offset}, nil
}

// NewPredicates 批次建立條件，保留順序
func NewPredicates(cfgs []PredicateConfig) ([]Predicate, error) {
	out := make([]Predicate, 0, len(cfgs))
	for i, cfg := range cfgs {
		p, err := NewPredicate(cfg)
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (p Predicate) String() string {
	if p.Offset == 0 {
		return fmt.Sprintf("%s %s %s", p.Left, p.Op, p.Right)
	}
	return fmt.Sprintf("%s %s %s (offset %g%%)", p.Left, p.Op, p.Right, p.Offset)
}

// Evaluate 評估單一條件
func (p Predicate) Evaluate(pair vo.Pair, indicators vo.IndicatorSnapshot, side vo.Side, extra map[string]float64) (bool, error) {
	left, err := p.Left.resolve(pair, indicators, extra)
	if err != nil {
		return false, err
	}
	right, err := p.Right.resolve(pair, indicators, extra)
	if err != nil {
		return false, err
	}

	if p.Offset != 0 {
		if side == vo.SideSell {
			right *= 1 + p.Offset/100
		} else {
			right *= 1 - p.Offset/100
		}
	}

	return p.Op.compare(left, right), nil
}
