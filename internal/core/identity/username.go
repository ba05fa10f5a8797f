package identity

import (
	"strings"
	"time"

	"github.com/rivo/uniseg"
)

// legacyUsernameLength is the length of usernames assigned at wallet sign-up
// before profiles recorded a creation time reliably
const legacyUsernameLength = 25

// UsernameCutover is the date after which the auto-generated flag on profiles
// is reliable. Earlier wallet sign-ups can only be recognised by username length.
var UsernameCutover = time.Date(2023, time.June, 12, 0, 0, 0, 0, time.UTC)

// UsernamePolicy decides whether a username was system-assigned.
//
// A username is auto-generated when it is not on the manual allow-list and
// either the account came from wallet sign-up without a creation time, or it
// came from wallet sign-up with a 25-character username before the cutover.
// Newer profiles also carry an explicit flag, which is honoured as-is.
// The rule is permissive on purpose: a miss only shows a system handle as if chosen.
type UsernamePolicy struct {
	manual  map[string]struct{}
	cutover time.Time
}

// NewUsernamePolicy creates a policy with the given manual-username allow-list
func NewUsernamePolicy(manualUsernames []string) *UsernamePolicy {
	p := &UsernamePolicy{
		manual:  make(map[string]struct{}, len(manualUsernames)),
		cutover: UsernameCutover,
	}
	for _, u := range manualUsernames {
		u = strings.TrimSpace(u)
		if u != "" {
			p.manual[u] = struct{}{}
		}
	}
	return p
}

// IsAutoGenerated applies the policy to a candidate
func (p *UsernamePolicy) IsAutoGenerated(c UsernameCandidate) bool {
	if c.Username == "" {
		return false
	}
	if _, ok := p.manual[c.Username]; ok {
		return false
	}
	if c.AutoGenerated {
		return true
	}
	if !c.Web3Signup {
		return false
	}
	if c.CreatedAt == nil || c.CreatedAt.IsZero() {
		return true
	}
	return uniseg.GraphemeClusterCount(c.Username) == legacyUsernameLength && c.CreatedAt.Before(p.cutover)
}
