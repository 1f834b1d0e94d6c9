package model

// Tenant is a building occupant. Each tenant belongs to exactly one
// property manager and one property. Only active tenants are matchable.
type Tenant struct {
	ID                string `json:"id"`
	PropertyManagerID string `json:"property_manager_id"`
	PropertyID        string `json:"property_id"`
	Name              string `json:"name"`
	Phone             string `json:"phone,omitempty"`
	Email             string `json:"email,omitempty"`
	IsActive          bool   `json:"is_active"`
}

// Property is a managed building or unit.
type Property struct {
	ID                string `json:"id"`
	PropertyManagerID string `json:"property_manager_id"`
	Name              string `json:"name"`
	Address           string `json:"address,omitempty"`
}

// TenantMatch is the outcome of tenant identification: the winning tenant,
// its confidence score, and the resolved property and property manager.
// A tenant without a resolvable property is never returned as a match.
type TenantMatch struct {
	Tenant          Tenant   `json:"tenant"`
	Score           int      `json:"score"`
	Property        Property `json:"property"`
	PropertyManager Account  `json:"property_manager"`
}
