// internal/device/derive.go
package device

import "github.com/tamzrod/vallox-bridge/internal/registers"

// Derive attaches the fault text and, when all four air temperatures are
// present, gain, reduction, balance and heat recovery efficiency.
func Derive(s Snapshot) {
	if code, ok := s[registers.VarFaultNumber].(int); ok {
		s[registers.FieldFaultText] = registers.FaultText(code)
	}

	outdoor, ok1 := s[registers.VarTemperatureOutdoor].(int)
	supply, ok2 := s[registers.VarTemperatureSupply].(int)
	extract, ok3 := s[registers.VarTemperatureExtract].(int)
	exhaust, ok4 := s[registers.VarTemperatureExhaust].(int)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return
	}

	gain := supply - outdoor
	reduction := extract - exhaust
	s[registers.FieldTemperatureGain] = gain
	s[registers.FieldTemperatureReduction] = reduction
	s[registers.FieldTemperatureBalance] = gain - reduction
	s[registers.FieldEfficiency] = Efficiency(outdoor, supply, extract)
}

// Efficiency is the supply side temperature gain as a percentage of the
// indoor/outdoor difference, truncated and clamped to 0..100.
// Equal extract and outdoor temperatures yield 100.
func Efficiency(outdoor, supply, extract int) int {
	if extract == outdoor {
		return 100
	}
	e := 100 * (supply - outdoor) / (extract - outdoor)
	return min(max(e, 0), 100)
}
