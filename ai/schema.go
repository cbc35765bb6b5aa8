package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	invopop "github.com/invopop/jsonschema"
	"github.com/poiesic/homily/core"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrContentSchema is returned when generated content does not match the
// AI content schema.
var ErrContentSchema = errors.New("generated content does not match schema")

var (
	schemaOnce     sync.Once
	schemaJSON     []byte
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func loadContentSchema() {
	r := &invopop.Reflector{
		DoNotReference:             true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  true,
		RequiredFromJSONSchemaTags: true,
	}
	schemaJSON, schemaErr = json.MarshalIndent(r.Reflect(&core.AIContent{}), "", "  ")
	if schemaErr != nil {
		return
	}

	compiler := jsonschema.NewCompiler()
	if schemaErr = compiler.AddResource("ai_content.json", bytes.NewReader(schemaJSON)); schemaErr != nil {
		return
	}
	compiledSchema, schemaErr = compiler.Compile("ai_content.json")
}

// ContentSchemaJSON returns the JSON schema of core.AIContent, reflected from
// the Go type. It is embedded in generation prompts.
func ContentSchemaJSON() ([]byte, error) {
	schemaOnce.Do(loadContentSchema)
	return schemaJSON, schemaErr
}

// ParseContent validates raw against the content schema and decodes it.
func ParseContent(raw []byte) (*core.AIContent, error) {
	schemaOnce.Do(loadContentSchema)
	if schemaErr != nil {
		return nil, fmt.Errorf("failed to load content schema: %w", schemaErr)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContentSchema, err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContentSchema, err)
	}

	var content core.AIContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContentSchema, err)
	}
	if content.Topics == nil {
		content.Topics = []string{}
	}
	if content.SupportingScriptures == nil {
		content.SupportingScriptures = []core.Scripture{}
	}
	return &content, nil
}
