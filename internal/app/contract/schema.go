package contract

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
)

// documentSchema is the minimal structure a stored document needs before it can be merged into.
const documentSchema = `{
  "type": "object",
  "properties": {
    "consumer": {
      "type": "object",
      "properties": { "name": { "type": "string" } }
    },
    "provider": {
      "type": "object",
      "properties": { "name": { "type": "string" } }
    },
    "interactions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["description"],
        "properties": { "description": { "type": "string" } }
      }
    },
    "metadata": {
      "type": "object",
      "properties": {
        "pactSpecification": { "type": "object" },
        "client": { "type": "object" }
      }
    }
  }
}`

var documentSchemaLoader = gojsonschema.NewStringLoader(documentSchema)

func validateDocument(data []byte) error {
	if !gjson.ValidBytes(data) {
		return corruptDocument(nil, "document is not valid JSON")
	}

	result, err := gojsonschema.Validate(documentSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return corruptDocument(err, "unable to parse document")
	}
	if result.Valid() {
		return nil
	}

	var violations []string
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}
	return corruptDocument(nil, "%s", strings.Join(violations, "; "))
}
