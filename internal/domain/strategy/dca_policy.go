package strategy

import (
	"strconv"
)

// DefaultDCALevel 預設層級的 key
const DefaultDCALevel = "default"

// DCALevel 單一層級設定，nil 欄位回落到 default
type DCALevel struct {
	Trigger    *float64 `yaml:"trigger" json:"trigger,omitempty"`
	Percentage *float64 `yaml:"percentage" json:"percentage,omitempty"`
}

// DCALevelPolicy 依層級查詢觸發跌幅與加倉百分比
//
//	{"default": {"trigger": -3, "percentage": 100},
//	 "0":       {"trigger": -5, "percentage": 50},
//	 "3":       {"trigger": -2, "percentage": 25}}
//
// 層級 0 在 -5% 觸發加倉 50%，層級 1、2 與 4 以上使用 default，層級 3 在 -2% 加倉 25%。
type DCALevelPolicy struct {
	levels            map[string]DCALevel
	defaultTrigger    float64
	defaultPercentage float64
}

// NewDCALevelPolicy 建立查詢表，default 必須同時包含 trigger 與 percentage
func NewDCALevelPolicy(table map[string]DCALevel) (*DCALevelPolicy, error) {
	def, ok := table[DefaultDCALevel]
	if !ok {
		return nil, invalidConfig("dca_strategy requires a %q entry", DefaultDCALevel)
	}
	if def.Trigger == nil || def.Percentage == nil {
		return nil, invalidConfig("dca_strategy %q entry needs trigger and percentage", DefaultDCALevel)
	}

	levels := make(map[string]DCALevel, len(table))
	for k, v := range table {
		if k != DefaultDCALevel {
			if _, err := strconv.Atoi(k); err != nil {
				return nil, invalidConfig("dca_strategy level %q is not an integer", k)
			}
		}
		levels[k] = v
	}

	return &DCALevelPolicy{
		levels:            levels,
		defaultTrigger:    *def.Trigger,
		defaultPercentage: *def.Percentage,
	}, nil
}

// Trigger 該層級的觸發跌幅（%）
func (p *DCALevelPolicy) Trigger(level int) float64 {
	if l, ok := p.levels[strconv.Itoa(level)]; ok && l.Trigger != nil {
		return *l.Trigger
	}
	return p.defaultTrigger
}

// Percentage 該層級的加倉比例（持倉的 %）
func (p *DCALevelPolicy) Percentage(level int) float64 {
	if l, ok := p.levels[strconv.Itoa(level)]; ok && l.Percentage != nil {
		return *l.Percentage
	}
	return p.defaultPercentage
}
