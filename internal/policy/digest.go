package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainRuleSet separates rule set digests from any other hash domain.
const DomainRuleSet = "policyminer/ruleset/v1"

// Digest returns the hex SHA-256 of the canonical rule content of rs,
// computed as SHA256(domain || 0x00 || canonical).
func Digest(rs *RuleSet) (string, error) {
	canonical, err := MarshalCanonical(rs)
	if err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(DomainRuleSet))
	h.Write([]byte{0x00})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}
