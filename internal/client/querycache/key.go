package querycache

// Kind names a family of cached queries
type Kind string

const (
	KindSalesList Kind = "sales-prs"
	KindAvailable Kind = "pa-available-prs"
	KindMine      Kind = "pa-my-prs"
	KindDetails   Kind = "pr-details"
)

// Key identifies one cached query. Scope is the session user id for lists
// and the pricing request id for details. A key with an empty Scope is a
// pattern matching every scope of its Kind.
type Key struct {
	Kind  Kind
	Scope string
}

// SalesListKey is the request list of a Sales Executive
func SalesListKey(userID string) Key { return Key{Kind: KindSalesList, Scope: userID} }

// AvailableKey is the unassigned pool as seen by an analyst
func AvailableKey(userID string) Key { return Key{Kind: KindAvailable, Scope: userID} }

// MineKey is the list of requests assigned to an analyst
func MineKey(userID string) Key { return Key{Kind: KindMine, Scope: userID} }

// DetailsKey is one pricing request
func DetailsKey(prID string) Key { return Key{Kind: KindDetails, Scope: prID} }

// IsPattern reports whether the key matches a whole Kind
func (k Key) IsPattern() bool {
	return k.Scope == ""
}

// Matches reports whether k, possibly a pattern, covers other
func (k Key) Matches(other Key) bool {
	if k.Kind != other.Kind {
		return false
	}
	return k.IsPattern() || k.Scope == other.Scope
}

func (k Key) String() string {
	if k.IsPattern() {
		return string(k.Kind) + "/*"
	}
	return string(k.Kind) + "/" + k.Scope
}
