package identity

import (
	"time"

	"Agora/internal/substrate/address"
)

// Judgement is a registrar attestation on an on-chain identity
type Judgement string

const (
	JudgementUnverified Judgement = "unverified"
	JudgementFeePaid    Judgement = "feePaid"
	JudgementReasonable Judgement = "reasonable"
	JudgementKnownGood  Judgement = "knownGood"
	JudgementErroneous  Judgement = "erroneous"
	JudgementLowQuality Judgement = "lowQuality"
)

// IdentityRecord is the on-chain registered identity of an account.
// Empty strings mean the field is not set on chain.
type IdentityRecord struct {
	DisplayName        string               `json:"displayName,omitempty"`
	LegalName          string               `json:"legalName,omitempty"`
	Email              string               `json:"email,omitempty"`
	RiotOrMatrixHandle string               `json:"riot,omitempty"`
	TwitterHandle      string               `json:"twitter,omitempty"`
	WebURL             string               `json:"web,omitempty"`
	Nickname           string               `json:"nickname,omitempty"`
	Judgements         []Judgement          `json:"judgements,omitempty"`
	Parent             *ParentProxyRelation `json:"parent,omitempty"`
}

// ParentProxyRelation links a sub-identity to the account it derives from
type ParentProxyRelation struct {
	ParentAddress string `json:"parentAddress"`
	ParentTitle   string `json:"parentTitle,omitempty"`
}

// ServiceEndpoint is a service advertised by a federated name's DID document
type ServiceEndpoint struct {
	Type     string `json:"type"`
	URL      string `json:"url"`
	Verified bool   `json:"verified"`
}

// FederatedName is a human-readable name from a decentralized naming service
type FederatedName struct {
	Name      string            `json:"name,omitempty"`
	DID       string            `json:"did,omitempty"`
	Endpoints []ServiceEndpoint `json:"endpoints,omitempty"`
}

// SocialType identifies the kind of social handle
type SocialType string

const (
	SocialEmail   SocialType = "email"
	SocialRiot    SocialType = "riot"
	SocialTwitter SocialType = "twitter"
	SocialWeb     SocialType = "web"
)

// SocialSource records where a handle came from
type SocialSource string

const (
	SocialFromChain    SocialSource = "onchain"
	SocialFromOffchain SocialSource = "offchain"
)

// Social is a linked social handle
type Social struct {
	Type     SocialType   `json:"type"`
	Handle   string       `json:"handle"`
	Verified bool         `json:"verified"`
	Source   SocialSource `json:"source"`
}

// OffchainProfile is the user-chosen profile stored off chain.
// IsAutoGeneratedUsername is computed once at the client boundary by UsernamePolicy.
type OffchainProfile struct {
	CreatedAt               *time.Time `json:"createdAt,omitempty"`
	Username                string     `json:"username"`
	Bio                     string     `json:"bio,omitempty"`
	AvatarURL               string     `json:"avatarUrl,omitempty"`
	SocialLinks             []Social   `json:"socialLinks,omitempty"`
	Web3Signup              bool       `json:"web3Signup"`
	IsAutoGeneratedUsername bool       `json:"isAutoGeneratedUsername"`
}

// UsernameCandidate is a username together with the signals needed to tell
// whether it was system-assigned
type UsernameCandidate struct {
	CreatedAt *time.Time
	Username  string
	// Web3Signup is true when the account was created through wallet sign-up
	Web3Signup bool
	// AutoGenerated is the explicit flag recorded by newer profile versions
	AutoGenerated bool
}

// Trust is the registrar-backed trust badge
type Trust struct {
	IsGood bool `json:"isGood"`
	IsBad  bool `json:"isBad"`
}

// DisplaySource names the precedence tier that produced PrimaryDisplay
type DisplaySource string

const (
	DisplayFederated DisplaySource = "federated"
	DisplayParent    DisplaySource = "parent"
	DisplayOnChain   DisplaySource = "onchain"
	DisplayUsername  DisplaySource = "username"
	DisplayNickname  DisplaySource = "nickname"
	DisplayOverride  DisplaySource = "override"
	DisplayAddress   DisplaySource = "address"
)

// ResolvedIdentity is the aggregate identity presentation for one (address, network)
type ResolvedIdentity struct {
	SecondaryDisplay *string              `json:"secondaryDisplay,omitempty"`
	ParentProxy      *ParentProxyRelation `json:"parentProxy,omitempty"`
	Address          string               `json:"address"`
	Canonical        address.Canonical    `json:"canonical"`
	Network          string               `json:"network"`
	PrimaryDisplay   string               `json:"primaryDisplay"`
	DisplaySource    DisplaySource        `json:"displaySource"`
	AvatarURL        string               `json:"avatarUrl,omitempty"`
	Socials          []Social             `json:"socials"`
	Trust            Trust                `json:"trust"`
	IsDelegate       bool                 `json:"isDelegate"`
}

// ResolveOptions tunes a single resolution
type ResolveOptions struct {
	// ExplicitUsernameOverride is a username the caller already resolved out-of-band
	ExplicitUsernameOverride *UsernameCandidate
	// DisableFederatedLookup skips the federated name source entirely
	DisableFederatedLookup bool
	// IncludeDelegate queries the delegate registry; off by default because
	// only delegate-aware views need it
	IncludeDelegate bool
}
