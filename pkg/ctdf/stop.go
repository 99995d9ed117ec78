package ctdf

import "time"

type Stop struct {
	PrimaryIdentifier string `groups:"basic"`

	CreationDateTime     time.Time `groups:"detailed"`
	ModificationDateTime time.Time `groups:"detailed"`

	DataSource *DataSource `groups:"internal"`

	PrimaryName string    `groups:"basic"`
	Location    *Location `groups:"basic"`
	Address     string    `groups:"detailed"`

	// Route identifiers serving this stop
	Routes []string `groups:"basic"`

	Amenities StopAmenities `groups:"detailed"`

	Active bool `groups:"internal"`
}

type StopAmenities struct {
	HasShelter      bool `groups:"detailed"`
	HasSeating      bool `groups:"detailed"`
	HasDisplayBoard bool `groups:"detailed"`
	IsAccessible    bool `groups:"detailed"`
}
