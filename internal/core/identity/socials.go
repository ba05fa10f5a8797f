package identity

import "strings"

// MergeSocials combines on-chain and off-chain handles.
// On-chain fields win per type and are verified only when the identity is
// judged good. Off-chain handles are never verified, and are dropped when the
// chain already provides that type.
func MergeSocials(record *IdentityRecord, profile *OffchainProfile, trust Trust) []Social {
	socials := make([]Social, 0, 4)
	seen := make(map[SocialType]bool)

	if record != nil {
		onChain := []struct {
			kind   SocialType
			handle string
		}{
			{SocialEmail, record.Email},
			{SocialRiot, record.RiotOrMatrixHandle},
			{SocialTwitter, record.TwitterHandle},
			{SocialWeb, record.WebURL},
		}
		for _, s := range onChain {
			handle := strings.TrimSpace(s.handle)
			if handle == "" {
				continue
			}
			socials = append(socials, Social{
				Type:     s.kind,
				Handle:   handle,
				Verified: trust.IsGood,
				Source:   SocialFromChain,
			})
			seen[s.kind] = true
		}
	}

	if profile != nil {
		for _, link := range profile.SocialLinks {
			kind := SocialType(strings.ToLower(strings.TrimSpace(string(link.Type))))
			handle := strings.TrimSpace(link.Handle)
			if kind == "" || handle == "" || seen[kind] {
				continue
			}
			socials = append(socials, Social{
				Type:   kind,
				Handle: handle,
				Source: SocialFromOffchain,
			})
			seen[kind] = true
		}
	}

	return socials
}
