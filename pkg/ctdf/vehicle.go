package ctdf

import "time"

type Vehicle struct {
	PrimaryIdentifier string `groups:"basic"`

	CreationDateTime     time.Time `groups:"detailed"`
	ModificationDateTime time.Time `groups:"detailed"`

	DataSource *DataSource `groups:"internal"`

	RegistrationNumber string `groups:"basic"`
	RouteRef           string `groups:"basic"`
	Capacity           int    `groups:"basic"`

	LastServiceDate *time.Time `groups:"internal"`

	Features VehicleFeatures `groups:"basic"`

	Active bool `groups:"internal"`
}

type VehicleFeatures struct {
	IsAC                   bool `groups:"basic"`
	IsElectric             bool `groups:"basic"`
	HasWifi                bool `groups:"basic"`
	IsWheelchairAccessible bool `groups:"basic"`
}
