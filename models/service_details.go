package models

// ServiceCategory tags the pricing variant carried by a booking.
type ServiceCategory string

const (
	ServiceStandard   ServiceCategory = "standard"
	ServiceHourly     ServiceCategory = "hourly"
	ServiceCeremonial ServiceCategory = "ceremonial"
)

// ServiceDetails is a tagged variant: the common booking core carries the
// category plus exactly one optional payload, instead of one struct with
// many nullable fields.
type ServiceDetails struct {
	Category   ServiceCategory    `bson:"category" json:"category"`
	Hourly     *HourlyDetails     `bson:"hourly,omitempty" json:"hourly,omitempty"`
	Ceremonial *CeremonialDetails `bson:"ceremonial,omitempty" json:"ceremonial,omitempty"`
}

// HourlyDetails prices time-billed services such as hourly drivers.
type HourlyDetails struct {
	BaseHours          int     `bson:"base_hours" json:"baseHours"`
	HourlyRate         float64 `bson:"hourly_rate" json:"hourlyRate"`
	OvertimeMultiplier float64 `bson:"overtime_multiplier" json:"overtimeMultiplier"`
}

// CeremonialDetails describes pujari and similar ritual services.
type CeremonialDetails struct {
	Ritual            string `bson:"ritual" json:"ritual"`
	MaterialsIncluded bool   `bson:"materials_included" json:"materialsIncluded"`
}
