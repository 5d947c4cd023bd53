// Package hass holds the Home Assistant sensor state documents produced from meter readings.
package hass

const (
	// EntityID is the sensor every interval reading is recorded against.
	EntityID = "sensor.esb_energy_consumption"

	// FriendlyName is the display name of the sensor.
	FriendlyName = "ESB Energy Consumption"

	// UnitOfMeasurement of the sensor state.
	UnitOfMeasurement = "kW"
)

// SensorRecord is a point-in-time sensor state.
type SensorRecord struct {
	EntityID    string     `json:"entity_id"`
	State       string     `json:"state"`
	Attributes  Attributes `json:"attributes"`
	LastChanged string     `json:"last_changed"`
	LastUpdated string     `json:"last_updated"`
}

// Attributes of an energy consumption state.
type Attributes struct {
	UnitOfMeasurement string `json:"unit_of_measurement"`
	FriendlyName      string `json:"friendly_name"`
	ReadDate          string `json:"read_date"`
	MPRN              string `json:"mprn"`
	MeterSerial       string `json:"meter_serial"`
	ReadType          string `json:"read_type"`
}
