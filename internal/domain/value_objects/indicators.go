package value_objects

// IndicatorSnapshot 單一交易對的技術指標快照，key 例如 "RSI_14_5m"
// 由外部計算，核心只讀
type IndicatorSnapshot map[string]float64

// Get 讀取指標值
func (s IndicatorSnapshot) Get(name string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	v, ok := s[name]
	return v, ok
}
