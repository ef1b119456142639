package domain

// UnitStatus is the denormalized occupancy flag cached on a unit.
type UnitStatus string

const (
	UnitVacant   UnitStatus = "Vacant"
	UnitOccupied UnitStatus = "Occupied"
)

// Property is a building or lot owned by a landlord account.
type Property struct {
	ID      string
	OwnerID string
	Name    string
}

// Unit belongs to exactly one property. Status and CurrentTenantID are a
// fast-path cache; occupancy is always decided from leases.
type Unit struct {
	ID              string
	PropertyID      string
	Label           string
	Status          UnitStatus
	CurrentTenantID string
}
