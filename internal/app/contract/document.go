package contract

import (
	"encoding/json"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	SpecificationVersion = "2.0.0"
	ClientName           = "pact-recorder"
	ClientVersion        = "0.3.0"

	DefaultConsumerName = "customer"
	DefaultProviderName = "provider"
)

// Identity names the two parties of a contract and selects the document it is stored in.
type Identity struct {
	ConsumerName string `json:"consumerName" yaml:"consumerName"`
	ProviderName string `json:"providerName" yaml:"providerName"`
}

func DefaultIdentity() Identity {
	return Identity{ConsumerName: DefaultConsumerName, ProviderName: DefaultProviderName}
}

func (i Identity) Validate() error {
	if strings.TrimSpace(i.ConsumerName) == "" {
		return errors.New("consumer name is empty")
	}
	if strings.TrimSpace(i.ProviderName) == "" {
		return errors.New("provider name is empty")
	}
	return nil
}

// DocumentKey is the storage key of the document for identity.
func DocumentKey(identity Identity) string {
	return identity.ProviderName + "-" + identity.ConsumerName + ".json"
}

type Party struct {
	Name string `json:"name"`
}

type Metadata struct {
	PactSpecification struct {
		Version string `json:"version"`
	} `json:"pactSpecification"`
	Client struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"client"`
}

type Document struct {
	Consumer     Party             `json:"consumer"`
	Provider     Party             `json:"provider"`
	Interactions []json.RawMessage `json:"interactions"`
	Metadata     Metadata          `json:"metadata"`
}

func newMetadata() Metadata {
	var m Metadata
	m.PactSpecification.Version = SpecificationVersion
	m.Client.Name = ClientName
	m.Client.Version = ClientVersion
	return m
}

// ParseDocument decodes and validates stored document bytes.
func ParseDocument(data []byte) (*Document, error) {
	if err := validateDocument(data); err != nil {
		return nil, err
	}
	var document Document
	if err := json.Unmarshal(data, &document); err != nil {
		return nil, corruptDocument(err, "unable to decode document")
	}
	return &document, nil
}

// Merge folds interaction into the existing document bytes and returns the new document.
// A nil or empty existing document yields a fresh one for identity. Each description appears
// once: a re-recorded description keeps its first position and takes the new content.
func Merge(interaction *Interaction, identity Identity, existing []byte) ([]byte, error) {
	entry, err := json.Marshal(interaction)
	if err != nil {
		return nil, errors.Wrap(err, "unable to encode interaction")
	}

	if len(existing) == 0 {
		return json.Marshal(Document{
			Consumer:     Party{Name: identity.ConsumerName},
			Provider:     Party{Name: identity.ProviderName},
			Interactions: []json.RawMessage{entry},
			Metadata:     newMetadata(),
		})
	}

	if err := validateDocument(existing); err != nil {
		return nil, err
	}

	var entries []json.RawMessage
	var descriptions []string
	gjson.GetBytes(existing, "interactions").ForEach(func(_, value gjson.Result) bool {
		entries = append(entries, json.RawMessage(value.Raw))
		descriptions = append(descriptions, value.Get("description").String())
		return true
	})
	entries = append(entries, entry)
	descriptions = append(descriptions, interaction.Description)

	interactions, err := json.Marshal(dedupe(entries, descriptions))
	if err != nil {
		return nil, corruptDocument(err, "unable to encode interactions")
	}

	merged, err := sjson.SetRawBytes(existing, "interactions", interactions)
	if err != nil {
		return nil, errors.Wrap(err, "unable to set interactions")
	}
	return reassertFields(merged, identity)
}

// dedupe keeps one entry per description, at the position of its first appearance and with
// the content of its last.
func dedupe(entries []json.RawMessage, descriptions []string) []json.RawMessage {
	positions := make(map[string]int, len(entries))
	result := make([]json.RawMessage, 0, len(entries))
	for i, entry := range entries {
		if position, seen := positions[descriptions[i]]; seen {
			result[position] = entry
			continue
		}
		positions[descriptions[i]] = len(result)
		result = append(result, entry)
	}
	return result
}

func reassertFields(document []byte, identity Identity) ([]byte, error) {
	if declared := gjson.GetBytes(document, "metadata.pactSpecification.version"); declared.Exists() {
		warnOnSpecificationMismatch(declared.String())
	}

	var err error
	for _, field := range []struct {
		path  string
		value string
		keep  bool
	}{
		{path: "consumer.name", value: identity.ConsumerName, keep: true},
		{path: "provider.name", value: identity.ProviderName, keep: true},
		{path: "metadata.pactSpecification.version", value: SpecificationVersion},
		{path: "metadata.client.name", value: ClientName},
		{path: "metadata.client.version", value: ClientVersion},
	} {
		if field.keep && gjson.GetBytes(document, field.path).Exists() {
			continue
		}
		document, err = sjson.SetBytes(document, field.path, field.value)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to set %s", field.path)
		}
	}
	return document, nil
}

func warnOnSpecificationMismatch(declared string) {
	expected := semver.MustParse(SpecificationVersion)
	version, err := semver.NewVersion(declared)
	if err != nil {
		log.Warnf("existing pact declares an unparsable specification version '%s', rewriting as %s", declared, SpecificationVersion)
		return
	}
	if version.Major() != expected.Major() {
		log.Warnf("existing pact declares specification version %s, rewriting as %s", version, SpecificationVersion)
	}
}
