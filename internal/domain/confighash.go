package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// ConfigurationHash produces a deterministic digest of a product
// configuration. Selected options are sorted by group before hashing so two
// logically identical configurations hash identically regardless of the
// order the options were picked in. The hash is the dedup key on add and the
// matching key during cart merge.
func ConfigurationHash(productTemplateID string, widthMM, heightMM int, selectedOptions map[string]string) string {
	groups := make([]string, 0, len(selectedOptions))
	for group := range selectedOptions {
		groups = append(groups, group)
	}
	sort.Strings(groups)

	var b strings.Builder
	fmt.Fprintf(&b, "%s|%d|%d", productTemplateID, widthMM, heightMM)
	for _, group := range groups {
		fmt.Fprintf(&b, "|%s=%s", group, selectedOptions[group])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
