package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"Agora/internal/core/identity"
	"Agora/internal/sources/transport"
)

// identitySchema is the shape the indexer must answer with.
// Anything else is treated as a transport failure rather than a partial record.
const identitySchema = `{
  "type": "object",
  "required": ["address"],
  "properties": {
    "address": {"type": "string", "minLength": 1},
    "info": {
      "type": ["object", "null"],
      "properties": {
        "display": {"type": "string"},
        "legal": {"type": "string"},
        "email": {"type": "string"},
        "matrix": {"type": "string"},
        "riot": {"type": "string"},
        "twitter": {"type": "string"},
        "web": {"type": "string"}
      }
    },
    "nickname": {"type": "string"},
    "judgements": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["judgement"],
        "properties": {
          "registrar": {"type": "integer", "minimum": 0},
          "judgement": {"type": "string"}
        }
      }
    },
    "super": {
      "type": ["object", "null"],
      "required": ["address"],
      "properties": {
        "address": {"type": "string", "minLength": 1},
        "subName": {"type": "string"}
      }
    }
  }
}`

var compiledSchema = mustCompile(identitySchema)

func mustCompile(schema string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		panic(fmt.Sprintf("registry: invalid identity schema: %v", err))
	}
	return s
}

// identityResponse is the indexer's view of pallet-identity storage
type identityResponse struct {
	Info       *identityInfo       `json:"info"`
	Super      *superOf            `json:"super"`
	Address    string              `json:"address"`
	Nickname   string              `json:"nickname"`
	Judgements []registrarJudgment `json:"judgements"`
}

type identityInfo struct {
	Display string `json:"display"`
	Legal   string `json:"legal"`
	Email   string `json:"email"`
	Matrix  string `json:"matrix"`
	Riot    string `json:"riot"`
	Twitter string `json:"twitter"`
	Web     string `json:"web"`
}

type registrarJudgment struct {
	Judgement string `json:"judgement"`
	Registrar int    `json:"registrar"`
}

type superOf struct {
	Address string `json:"address"`
	SubName string `json:"subName"`
}

// Client implements identity.ChainRegistryClient against an identity indexer.
// A sub-identity record triggers a second lookup of its parent for the title.
type Client struct {
	http   *transport.Client
	logger *slog.Logger
}

// NewClient creates a chain registry client
func NewClient(baseURL string, opts transport.Options) (*Client, error) {
	c, err := transport.New(identity.SourceChainRegistry, baseURL, opts)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{http: c, logger: logger}, nil
}

// FetchIdentity fetches the registered identity for addr on network
func (c *Client) FetchIdentity(ctx context.Context, addr, network string) (*identity.IdentityRecord, error) {
	resp, err := c.fetch(ctx, addr, network)
	if err != nil {
		return nil, err
	}

	record := toRecord(resp)
	if resp.Super == nil {
		return record, nil
	}

	record.Parent = &identity.ParentProxyRelation{ParentAddress: resp.Super.Address}
	if record.DisplayName == "" {
		record.DisplayName = strings.TrimSpace(resp.Super.SubName)
	}

	parent, err := c.fetch(ctx, resp.Super.Address, network)
	switch {
	case err == nil:
		if parent.Info != nil {
			record.Parent.ParentTitle = strings.TrimSpace(parent.Info.Display)
		}
	case identity.IsNotFound(err):
	default:
		// The child record is still good; it just renders without the parent title
		c.logger.Warn("failed to fetch parent identity",
			"address", addr, "parent", resp.Super.Address, "network", network, "error", err)
	}

	return record, nil
}

func (c *Client) fetch(ctx context.Context, addr, network string) (*identityResponse, error) {
	var raw json.RawMessage
	query := url.Values{"address": {addr}, "network": {network}}
	if err := c.http.GetJSON(ctx, "identity", query, addr, &raw); err != nil {
		return nil, err
	}

	// An empty object or null is how some indexers say "no identity"
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" || trimmed == "{}" {
		return nil, &identity.NotFoundError{Source: identity.SourceChainRegistry, Address: addr}
	}

	result, err := compiledSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, &identity.TransportError{Source: identity.SourceChainRegistry, Address: addr, Reason: "unreadable response", Err: err}
	}
	if !result.Valid() {
		var messages []string
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}
		return nil, &identity.TransportError{
			Source:  identity.SourceChainRegistry,
			Address: addr,
			Reason:  "response failed schema validation: " + strings.Join(messages, "; "),
		}
	}

	var resp identityResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &identity.TransportError{Source: identity.SourceChainRegistry, Address: addr, Reason: "failed to decode response", Err: err}
	}
	return &resp, nil
}

func toRecord(resp *identityResponse) *identity.IdentityRecord {
	record := &identity.IdentityRecord{
		Nickname:   strings.TrimSpace(resp.Nickname),
		Judgements: make([]identity.Judgement, 0, len(resp.Judgements)),
	}
	if info := resp.Info; info != nil {
		record.DisplayName = strings.TrimSpace(info.Display)
		record.LegalName = strings.TrimSpace(info.Legal)
		record.Email = strings.TrimSpace(info.Email)
		record.TwitterHandle = strings.TrimSpace(info.Twitter)
		record.WebURL = strings.TrimSpace(info.Web)
		record.RiotOrMatrixHandle = strings.TrimSpace(info.Matrix)
		if record.RiotOrMatrixHandle == "" {
			record.RiotOrMatrixHandle = strings.TrimSpace(info.Riot)
		}
	}
	for _, j := range resp.Judgements {
		record.Judgements = append(record.Judgements, MapJudgement(j.Judgement))
	}
	return record
}

// MapJudgement maps a pallet-identity judgement name to its domain value.
// Unknown and OutOfDate carry no attestation and map to unverified.
func MapJudgement(name string) identity.Judgement {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "feepaid":
		return identity.JudgementFeePaid
	case "reasonable":
		return identity.JudgementReasonable
	case "knowngood":
		return identity.JudgementKnownGood
	case "erroneous":
		return identity.JudgementErroneous
	case "lowquality":
		return identity.JudgementLowQuality
	default:
		return identity.JudgementUnverified
	}
}
