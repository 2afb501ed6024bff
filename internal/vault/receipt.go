package vault

import "time"

// Receipt represents a single purchase record with optional image and tags
type Receipt struct {
	ID        string   `json:"id"`
	Vendor    string   `json:"vendor" validate:"notblank"`
	Amount    float64  `json:"amount" validate:"gt=0"`
	Date      string   `json:"date" validate:"required"` // ISO date, e.g. 2024-01-10
	Notes     string   `json:"notes,omitempty"`
	Tags      []string `json:"tags"` // category names, insertion order preserved
	ImageURI  string   `json:"imageUri,omitempty"`
	CreatedAt string   `json:"createdAt"`
	UpdatedAt string   `json:"updatedAt"`
}

// Category represents a user-defined label with a display color.
// Receipts reference categories by name, not by ID; deleting a
// category does not touch receipt tags.
type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	CreatedAt string `json:"createdAt"`
}

// AutoCleanSettings controls the retention process
type AutoCleanSettings struct {
	Enabled bool `json:"enabled"`
	Days    int  `json:"days"`
}

// CurrencySettings holds the display currency symbol
type CurrencySettings struct {
	Currency string `json:"currency"`
}

// Snapshot is the export payload consumed outside the core
type Snapshot struct {
	Receipts   []Receipt  `json:"receipts"`
	Categories []Category `json:"categories"`
}

const dateLayout = "2006-01-02"

// parseDate parses a receipt date string. Malformed dates report ok=false;
// callers treat them as matching no date filter and sorting oldest.
func parseDate(s string) (time.Time, bool) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
