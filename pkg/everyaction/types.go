package everyaction

// Subscription status values reported on a person's email records.
// The API reports "S" (subscribed), "U" (unsubscribed) or an empty
// string when no preference has ever been recorded.
const (
	SubscriptionSubscribed   = "S"
	SubscriptionUnsubscribed = "U"
)

// Phone type and opt-in values used when pushing phones.
const (
	PhoneTypeCell    = "C"
	PhoneOptIn       = "I"
	EmailTypePrivate = "P"
)

// IdentifierTypeActionNetwork is the external-id namespace under which
// Action Network record UUIDs are stored on a person.
const IdentifierTypeActionNetwork = "ActionNetworkID"

// CodeKind distinguishes the two remote code catalogs.
type CodeKind string

const (
	// CodeKindActivist is an activist code with boolean apply/remove semantics.
	CodeKindActivist CodeKind = "activist"
	// CodeKindGeneric is a generic code of type "Tag". The apply endpoint
	// for generic codes is not supported, so these are resolved but never
	// pushed.
	CodeKindGeneric CodeKind = "generic"
)

// CodeRef is a canonical reference to a remote code in either catalog.
type CodeRef struct {
	ID   int
	Kind CodeKind
	Name string
}

// Email is one email record on a person.
type Email struct {
	Address            string `json:"email"`
	Type               string `json:"type,omitempty"`
	IsPreferred        bool   `json:"isPreferred"`
	SubscriptionStatus string `json:"subscriptionStatus,omitempty"`
	IsSubscribed       *bool  `json:"isSubscribed,omitempty"`
}

// Phone is one phone record on a person.
type Phone struct {
	Number      string `json:"phoneNumber"`
	Type        string `json:"phoneType,omitempty"`
	OptInStatus string `json:"phoneOptInStatus,omitempty"`
	IsPreferred bool   `json:"isPreferred,omitempty"`
}

// Address is one postal address record on a person.
type Address struct {
	Line1       string `json:"addressLine1,omitempty"`
	Line2       string `json:"addressLine2,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"stateOrProvince,omitempty"`
	Zip         string `json:"zipOrPostalCode,omitempty"`
	Country     string `json:"countryCode,omitempty"`
	IsPreferred bool   `json:"isPreferred,omitempty"`
}

// Identifier is an external-id record on a person.
type Identifier struct {
	Type       string `json:"type"`
	ExternalID string `json:"externalId"`
}

// Person is a remote contact record. The engine only ever holds a
// transient copy fetched per row; the remote system owns the record.
type Person struct {
	VanID       int          `json:"vanId"`
	FirstName   string       `json:"firstName,omitempty"`
	LastName    string       `json:"lastName,omitempty"`
	Emails      []Email      `json:"emails,omitempty"`
	Phones      []Phone      `json:"phones,omitempty"`
	Addresses   []Address    `json:"addresses,omitempty"`
	Identifiers []Identifier `json:"identifiers,omitempty"`
}

// PreferredEmail returns the person's preferred email record, or nil.
func (p *Person) PreferredEmail() *Email {
	for i := range p.Emails {
		if p.Emails[i].IsPreferred {
			return &p.Emails[i]
		}
	}
	return nil
}

// PreferredPhone returns the person's preferred phone record, or nil.
func (p *Person) PreferredPhone() *Phone {
	for i := range p.Phones {
		if p.Phones[i].IsPreferred {
			return &p.Phones[i]
		}
	}
	return nil
}

// PreferredAddress returns the person's preferred address record, or nil.
func (p *Person) PreferredAddress() *Address {
	for i := range p.Addresses {
		if p.Addresses[i].IsPreferred {
			return &p.Addresses[i]
		}
	}
	return nil
}

// Identifier returns the external id stored under the given namespace.
func (p *Person) Identifier(typ string) (string, bool) {
	for _, id := range p.Identifiers {
		if id.Type == typ {
			return id.ExternalID, true
		}
	}
	return "", false
}

// PersonFields is the mutable field set pushed on create and update.
type PersonFields struct {
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	Emails    []Email   `json:"emails,omitempty"`
	Phones    []Phone   `json:"phones,omitempty"`
	Addresses []Address `json:"addresses,omitempty"`
}
