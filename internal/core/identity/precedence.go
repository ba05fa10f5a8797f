package identity

import (
	"strings"

	"Agora/internal/substrate/address"
)

// sourceResults holds what each source returned for one resolution.
// A nil record means NotFound, transport failure, or not queried.
type sourceResults struct {
	record     *IdentityRecord
	name       *FederatedName
	profile    *OffchainProfile
	isDelegate bool
}

// presentation carries the non-source inputs of the precedence chain
type presentation struct {
	override         *UsernameCandidate
	policy           *UsernamePolicy
	canonical        address.Canonical
	encoded          string
	network          string
	shortenChars     int
	federatedAllowed bool
}

// aggregate applies the display precedence chain, first match wins:
//
//  1. federated name, when the network supports federated naming
//  2. parent title with the on-chain display name as the sub qualifier
//  3. on-chain display name
//  4. off-chain username, unless auto-generated
//  5. on-chain nickname
//  6. caller override username, unless auto-generated
//  7. shortened address
func aggregate(s sourceResults, p presentation) *ResolvedIdentity {
	trust := Trust{}
	if s.record != nil {
		trust = ComputeTrust(s.record.Judgements)
	}

	resolved := &ResolvedIdentity{
		Address:    p.encoded,
		Canonical:  p.canonical,
		Network:    p.network,
		Trust:      trust,
		Socials:    MergeSocials(s.record, s.profile, trust),
		IsDelegate: s.isDelegate,
	}
	if s.record != nil && s.record.Parent != nil {
		parent := *s.record.Parent
		resolved.ParentProxy = &parent
	}
	if s.profile != nil {
		resolved.AvatarURL = s.profile.AvatarURL
	}

	displayName := ""
	nickname := ""
	if s.record != nil {
		displayName = strings.TrimSpace(s.record.DisplayName)
		nickname = strings.TrimSpace(s.record.Nickname)
	}

	switch {
	case p.federatedAllowed && s.name != nil && strings.TrimSpace(s.name.Name) != "":
		resolved.PrimaryDisplay = strings.TrimSpace(s.name.Name)
		resolved.DisplaySource = DisplayFederated

	case displayName != "" && resolved.ParentProxy != nil && strings.TrimSpace(resolved.ParentProxy.ParentTitle) != "":
		sub := s.record.DisplayName
		resolved.PrimaryDisplay = strings.TrimSpace(resolved.ParentProxy.ParentTitle)
		resolved.SecondaryDisplay = &sub
		resolved.DisplaySource = DisplayParent

	case displayName != "":
		resolved.PrimaryDisplay = displayName
		resolved.DisplaySource = DisplayOnChain

	case s.profile != nil && s.profile.Username != "" && !s.profile.IsAutoGeneratedUsername:
		resolved.PrimaryDisplay = s.profile.Username
		resolved.DisplaySource = DisplayUsername

	case nickname != "":
		resolved.PrimaryDisplay = nickname
		resolved.DisplaySource = DisplayNickname

	case p.override != nil && p.override.Username != "" && !p.policy.IsAutoGenerated(*p.override):
		resolved.PrimaryDisplay = p.override.Username
		resolved.DisplaySource = DisplayOverride

	default:
		resolved.PrimaryDisplay = address.Shorten(p.encoded, p.shortenChars)
		resolved.DisplaySource = DisplayAddress
	}

	return resolved
}
