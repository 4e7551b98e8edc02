package strategy

import (
	"strconv"
	"strings"
)

// ValueKind 數值表達式類型
type ValueKind int

const (
	Absolute ValueKind = iota
	PercentOfBalance
)

// ValueExpr 設定中的金額：絕對值（計價幣）或餘額百分比（"200%"）
// 載入設定時解析一次，評估時不再處理字串
type ValueExpr struct {
	Kind  ValueKind
	Value float64
}

// AbsoluteValue 建立絕對值
func AbsoluteValue(v float64) ValueExpr {
	return ValueExpr{Kind: Absolute, Value: v}
}

// PercentValue 建立百分比，p=200 代表 200%
func PercentValue(p float64) ValueExpr {
	return ValueExpr{Kind: PercentOfBalance, Value: p}
}

// ParseValueExpr 解析數字或 "N%" 字串
func ParseValueExpr(raw any) (ValueExpr, error) {
	switch v := raw.(type) {
	case int:
		return AbsoluteValue(float64(v)), nil
	case int64:
		return AbsoluteValue(float64(v)), nil
	case float64:
		return AbsoluteValue(v), nil
	case string:
		s := strings.TrimSpace(v)
		if strings.HasSuffix(s, "%") {
			p, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64)
			if err != nil {
				return ValueExpr{}, invalidConfig("bad percent value %q", v)
			}
			return PercentValue(p), nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return ValueExpr{}, invalidConfig("bad value %q", v)
		}
		return AbsoluteValue(f), nil
	case nil:
		return AbsoluteValue(0), nil
	default:
		return ValueExpr{}, invalidConfig("unsupported value %v (%T)", raw, raw)
	}
}

// Resolve 依餘額換算為計價幣金額
func (v ValueExpr) Resolve(balance float64) float64 {
	if v.Kind == PercentOfBalance {
		return balance * v.Value / 100
	}
	return v.Value
}

func (v ValueExpr) String() string {
	s := strconv.FormatFloat(v.Value, 'f', -1, 64)
	if v.Kind == PercentOfBalance {
		return s + "%"
	}
	return s
}

// UnmarshalYAML 讓 ValueExpr 可直接出現在 YAML 設定中
func (v *ValueExpr) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := ParseValueExpr(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
