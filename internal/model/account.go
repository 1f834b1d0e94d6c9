package model

// AccountType distinguishes the two kinds of tenant-scoped accounts.
type AccountType string

const (
	AccountTypeRealtor         AccountType = "realtor"
	AccountTypePropertyManager AccountType = "property_manager"
)

// Account is a Realtor or PropertyManager — the tenant-isolation boundary
// that inbound events are routed to.
type Account struct {
	ID           string      `json:"id"`
	Type         AccountType `json:"type"`
	Name         string      `json:"name"`
	ContactPhone string      `json:"contact_phone"`
	// AccessScope is the set of data-source identifiers this account may
	// query, derived from its stored source relationships.
	AccessScope []string `json:"access_scope,omitempty"`
}

// NumberStatus is the assignment state of a platform-owned phone number.
type NumberStatus string

const (
	NumberStatusAssigned   NumberStatus = "assigned"
	NumberStatusUnassigned NumberStatus = "unassigned"
)

// PurchasedPhoneNumber is a platform-owned number. When assigned it binds a
// dialed number to an account distinct from the account's own contact number.
type PurchasedPhoneNumber struct {
	ID             string       `json:"id"`
	Number         string       `json:"number"`
	Status         NumberStatus `json:"status"`
	AssignedToType AccountType  `json:"assigned_to_type,omitempty"`
	AssignedToID   string       `json:"assigned_to_id,omitempty"`
}

// AccountMatch is a successful account resolution: the account plus the
// phone number and extraction source that produced it.
type AccountMatch struct {
	Account Account `json:"account"`
	Phone   string  `json:"phone"`
	Source  string  `json:"source,omitempty"`
}
