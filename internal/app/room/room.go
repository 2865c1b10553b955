/*
Package room defines the shared data model for a household room.

A Room is a family's shared namespace in the remote store, addressed by a short
code and gated by a plaintext shared password. Its Data payload carries every
piece of state the household views render: members with their budget entries,
the shopping list, calendar events, participants, and free-form settings.
*/
package room

import "encoding/json"

// CodeLength is the fixed length of a room code.
const CodeLength = 6

// Record is the full room record as held by the remote store.
// The wire shape is shared by every store backend.
type Record struct {
	// Data is the household payload mutated by every member's sync.
	Data Data `json:"data"`

	// Password is the plaintext shared secret distributed among members.
	// It is a client-side gate only: the store never checks it on reads,
	// so room contents are as secret as the room code itself.
	Password string `json:"roomPassword"`

	// LastUpdated is the store-assigned write timestamp in Unix milliseconds.
	LastUpdated int64 `json:"lastUpdated"`
}

// Data is the opaque-to-the-store household payload.
type Data struct {
	Users        []User            `json:"users"`
	Shopping     Shopping          `json:"shopping"`
	Events       []Event           `json:"events"`
	Participants []string          `json:"participants"`
	Settings     map[string]string `json:"settings"`
}

// Shopping groups the live shopping list and the reusable list templates.
type Shopping struct {
	Items     []ShoppingItem     `json:"items"`
	Templates []ShoppingTemplate `json:"templates"`
}

// ShoppingItem is a single entry on the shared shopping list.
type ShoppingItem struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Amount  int    `json:"amount,omitempty"`
	Checked bool   `json:"checked"`
	AddedBy string `json:"addedBy,omitempty"`
}

// ShoppingTemplate is a named set of items that can be loaded onto the list in one go.
type ShoppingTemplate struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Items []ShoppingItem `json:"items"`
}

// Event is a calendar entry visible to every room member.
type Event struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Date         string   `json:"date"`
	Time         string   `json:"time,omitempty"`
	Participants []string `json:"participants,omitempty"`
	Note         string   `json:"note,omitempty"`
}

// User is a room member together with their budget-tracker state.
// Users are created lazily the first time a name is seen in the room;
// the exact name string is the de-duplication key (case-sensitive, no
// normalization), which mirrors the observed behavior rather than fixing it.
type User struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Settings         UserSettings `json:"settings"`
	FixedPayments    []Payment    `json:"fixedPayments"`
	Expenses         []Payment    `json:"expenses"`
	Incomes          []Payment    `json:"incomes"`
	CustomCategories []string     `json:"customCategories"`
}

// UserSettings holds per-member display preferences.
type UserSettings struct {
	Currency   string `json:"currency,omitempty"`
	MonthStart int    `json:"monthStart,omitempty"`
}

// Payment is a single budget entry. Amounts are stored in cents to avoid
// floating-point drift when members on different devices sum them.
type Payment struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Amount   int64  `json:"amount"`
	Category string `json:"category,omitempty"`
	Date     string `json:"date,omitempty"`
	Note     string `json:"note,omitempty"`
}

// EmptyData returns the empty-room default payload. All collections are
// non-nil so a freshly created or left room serializes to the same shape
// the remote store holds for a new room.
func EmptyData() Data {
	return Data{
		Users: []User{},
		Shopping: Shopping{
			Items:     []ShoppingItem{},
			Templates: []ShoppingTemplate{},
		},
		Events:       []Event{},
		Participants: []string{},
		Settings:     map[string]string{},
	}
}

// Clone returns a deep copy of the data by round-tripping through JSON.
// The payload is small (one household) and already JSON-shaped, so this is
// both correct and cheap enough for snapshot hand-offs between the session
// and its callers.
func (d Data) Clone() Data {
	raw, err := json.Marshal(d)
	if err != nil {
		return EmptyData()
	}

	var out Data
	if err := json.Unmarshal(raw, &out); err != nil {
		return EmptyData()
	}

	return out
}

// FindUser returns a pointer to the member with the exact given name, or nil.
func (d *Data) FindUser(name string) *User {
	for i := range d.Users {
		if d.Users[i].Name == name {
			return &d.Users[i]
		}
	}
	return nil
}
