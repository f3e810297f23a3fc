package datasource

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Seed is the inbound-from-document-evaluator shape (spec.md §6.1).
// HasFirstItem/HasLastItem report whether the consuming container's
// template declared a firstItem/lastItem sentinel (spec.md §6.4) — the
// document evaluator that built this Seed is the only thing that knows
// the container's template, so it stamps the flags into the Seed itself
// rather than the provider inferring them from data it never sees.
type Seed struct {
	Type              string            `json:"type"`
	ListID            string            `json:"listId"`
	PresentationToken string            `json:"presentationToken,omitempty"`
	PageToken         string            `json:"pageToken"`
	ForwardPageToken  *string           `json:"forwardPageToken,omitempty"`
	BackwardPageToken *string           `json:"backwardPageToken,omitempty"`
	Items             []json.RawMessage `json:"items"`
	HasFirstItem      bool              `json:"hasFirstItem,omitempty"`
	HasLastItem       bool              `json:"hasLastItem,omitempty"`
}

// FetchEvent is the outbound-to-host shape (spec.md §6.2).
type FetchEvent struct {
	Name  string          `json:"name"`
	Value FetchEventValue `json:"value"`
}

type FetchEventValue struct {
	ListID          string `json:"listId"`
	CorrelationToken string `json:"correlationToken"`
	PageToken       string `json:"pageToken"`
}

// UpdateEnvelope is the inbound-via-processUpdate shape (spec.md §6.3).
type UpdateEnvelope struct {
	PresentationToken string            `json:"presentationToken"`
	ListID            string            `json:"listId"`
	CorrelationToken  *string           `json:"correlationToken,omitempty"`
	PageToken         string            `json:"pageToken"`
	NextPageToken     string            `json:"nextPageToken,omitempty"`
	Items             []json.RawMessage `json:"items"`
}

// CorrelationInt parses the wire's decimal-string correlation token into
// the provider's internal int64 form, per spec.md §9: "String-typed
// correlation tokens in the wire format are preserved ... but internally
// the provider uses integers."
func (e UpdateEnvelope) CorrelationInt() (value int64, present bool, err error) {
	if e.CorrelationToken == nil || *e.CorrelationToken == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseInt(strings.TrimSpace(*e.CorrelationToken), 10, 64)
	if err != nil {
		return 0, true, err
	}
	return v, true, nil
}

const seedSchemaJSON = `{
	"type": "object",
	"required": ["listId", "pageToken"],
	"properties": {
		"type": {"type": "string"},
		"listId": {"type": "string", "minLength": 1},
		"presentationToken": {"type": "string"},
		"pageToken": {"type": "string", "minLength": 1},
		"forwardPageToken": {"type": "string"},
		"backwardPageToken": {"type": "string"},
		"items": {"type": "array"},
		"hasFirstItem": {"type": "boolean"},
		"hasLastItem": {"type": "boolean"}
	}
}`

const updateEnvelopeSchemaJSON = `{
	"type": "object",
	"required": ["listId", "pageToken", "items"],
	"properties": {
		"presentationToken": {"type": "string"},
		"listId": {"type": "string", "minLength": 1},
		"correlationToken": {"type": "string"},
		"pageToken": {"type": "string"},
		"nextPageToken": {"type": "string"},
		"items": {"type": "array"}
	}
}`

var seedSchema = compileSchema("seed.json", seedSchemaJSON)
var updateEnvelopeSchema = compileSchema("updateEnvelope.json", updateEnvelopeSchemaJSON)

// compileSchema panics on a bad schema document, matching the teacher's
// DefaultContractManagerSettings pattern of panicking on an init-time
// programmer error (a malformed schema here is exactly that: it can never
// depend on host input).
func compileSchema(url string, schemaJSON string) *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(schemaJSON))
	if err != nil {
		panic(err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, doc); err != nil {
		panic(err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		panic(err)
	}
	return schema
}

// DecodeSeed structurally validates raw against the seed schema (§6.1) and
// decodes it. A structural failure (missing listId/pageToken, wrong types)
// is returned as an error and no Seed is produced; DecodeSeed queues no
// ErrorRecord itself.
func DecodeSeed(raw []byte) (Seed, error) {
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return Seed{}, err
	}
	if err := seedSchema.Validate(instance); err != nil {
		return Seed{}, err
	}
	var seed Seed
	if err := json.Unmarshal(raw, &seed); err != nil {
		return Seed{}, err
	}
	return seed, nil
}

// DecodeUpdateEnvelope structurally validates raw against the update
// envelope schema (§6.3) before any field-level ResponseValidator check
// runs (§4.4).
func DecodeUpdateEnvelope(raw []byte) (UpdateEnvelope, error) {
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return UpdateEnvelope{}, err
	}
	if err := updateEnvelopeSchema.Validate(instance); err != nil {
		return UpdateEnvelope{}, err
	}
	var envelope UpdateEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return UpdateEnvelope{}, err
	}
	return envelope, nil
}
