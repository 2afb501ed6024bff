package export

import (
	"encoding/json"
	"fmt"

	"github.com/scanvault/scanvault/internal/vault"
)

// JSON renders the full snapshot as indented JSON
func JSON(snapshot vault.Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling snapshot: %w", err)
	}
	return data, nil
}
