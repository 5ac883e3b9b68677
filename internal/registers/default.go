// internal/registers/default.go
package registers

// Variable names the derived-value logic depends on.
const (
	VarFanSpeed           = "fanspeed"
	VarFaultNumber        = "fault_number"
	VarTemperatureOutdoor = "temperature_outdoor_air"
	VarTemperatureSupply  = "temperature_supply_air"
	VarTemperatureExtract = "temperature_extract_air"
	VarTemperatureExhaust = "temperature_exhaust_air"
)

// Derived snapshot fields added after a full read.
const (
	FieldFaultText            = "fault_text"
	FieldTemperatureGain      = "temperature_gain"
	FieldTemperatureReduction = "temperature_reduction"
	FieldTemperatureBalance   = "temperature_balance"
	FieldEfficiency           = "efficiency"
)

// Vallox Digit SE / Helios KWL EC mainboard variables.
var defaultDefinitions = []Definition{
	// temperatures (NTC 5k)
	{Name: VarTemperatureOutdoor, ID: 0x32, Type: Temperature},
	{Name: VarTemperatureExhaust, ID: 0x33, Type: Temperature},
	{Name: VarTemperatureExtract, ID: 0x34, Type: Temperature},
	{Name: VarTemperatureSupply, ID: 0x35, Type: Temperature},

	// fans
	{Name: VarFanSpeed, ID: 0x29, Type: FanSpeed, Writable: true},
	{Name: "fanspeed_max", ID: 0xA5, Type: FanSpeed, Writable: true},
	{Name: "fanspeed_min", ID: 0xA9, Type: FanSpeed, Writable: true},
	{Name: "supply_fan_percent", ID: 0xB0, Type: Decimal, Writable: true},
	{Name: "exhaust_fan_percent", ID: 0xB1, Type: Decimal, Writable: true},

	// multi-purpose flags 0xA3
	{Name: "power_state", ID: 0xA3, Type: Bit, Bit: 0, Writable: true},
	{Name: "co2_adjust_state", ID: 0xA3, Type: Bit, Bit: 1, Writable: true},
	{Name: "humidity_adjust_state", ID: 0xA3, Type: Bit, Bit: 2, Writable: true},
	{Name: "heating_state", ID: 0xA3, Type: Bit, Bit: 3, Writable: true},
	{Name: "filter_guard_indicator", ID: 0xA3, Type: Bit, Bit: 4},
	{Name: "heating_indicator", ID: 0xA3, Type: Bit, Bit: 5},
	{Name: "fault_indicator", ID: 0xA3, Type: Bit, Bit: 6},
	{Name: "service_reminder_indicator", ID: 0xA3, Type: Bit, Bit: 7},

	// setpoints
	{Name: "heating_setpoint", ID: 0xA4, Type: Temperature, Writable: true},
	{Name: "preheating_temperature", ID: 0xA7, Type: Temperature, Writable: true},
	{Name: "supply_fan_stop_temperature", ID: 0xA8, Type: Temperature, Writable: true},
	{Name: "bypass_temperature", ID: 0xAF, Type: Temperature, Writable: true},
	{Name: "defrost_hysteresis", ID: 0xB2, Type: Decimal, Divisor: 3, Writable: true},

	// program flags 0xAA
	{Name: "boost_fireplace_switch_mode", ID: 0xAA, Type: Bit, Bit: 5, Writable: true},
	{Name: "radiator_type", ID: 0xAA, Type: Bit, Bit: 6, Writable: true},
	{Name: "cascade_control", ID: 0xAA, Type: Bit, Bit: 7, Writable: true},

	// boost / fireplace
	{Name: "boost_fireplace_active", ID: 0x71, Type: Bit, Bit: 5, Writable: true},
	{Name: "boost_fireplace_remaining", ID: 0x79, Type: Decimal},

	// service and faults
	{Name: "service_interval", ID: 0xA6, Type: Decimal, Writable: true},
	{Name: "service_months_remaining", ID: 0xAB, Type: Decimal},
	{Name: VarFaultNumber, ID: 0x36, Type: Decimal},
	{Name: "post_heating_on_counter", ID: 0x55, Type: Decimal},
}

var defaultTable = func() *Table {
	t, err := NewTable(defaultDefinitions)
	if err != nil {
		panic(err)
	}
	return t
}()

// Default returns the built-in mainboard table.
func Default() *Table {
	return defaultTable
}
