// Package domain holds the persisted travel models. Callers import it as
// types, mirroring the table-per-struct layout of the gorm schema.
package domain

// Models lists every table the service owns, in dependency order, for
// AutoMigrate.
func Models() []interface{} {
	return []interface{}{
		&User{},
		&Destination{},
		&Place{},
		&TravelPlan{},
		&PlaceVisit{},
		&TravelRecord{},
		&RecordImage{},
		&DestinationReview{},
	}
}
