package record

import (
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// configSchema constrains config_json payloads. JSON is valid CUE, so a
// payload is compiled directly and unified with #Config.
const configSchema = `
#Config: {
	kind:           "document" | "section_break" | "cover_page" | "divider"
	description?:   string
	date?:          =~"^[0-9]{4}-[0-9]{2}-[0-9]{2}$"
	exhibit_label?: string
	disputed?:      bool
	section_label?: string
	page_count?:    int & >=1

	if kind == "section_break" {
		section_label: string
	}
	if kind == "cover_page" || kind == "divider" {
		page_count: int & >=1
	}
}
`

// cue.Context is not safe for concurrent use.
var (
	schemaMu  sync.Mutex
	schemaCtx *cue.Context
	schemaDef cue.Value
)

func configDefinition() (*cue.Context, cue.Value, error) {
	if schemaCtx == nil {
		ctx := cuecontext.New()
		v := ctx.CompileString(configSchema, cue.Filename("config.cue"))
		if err := v.Err(); err != nil {
			return nil, cue.Value{}, fmt.Errorf("compile config schema: %w", err)
		}
		schemaCtx = ctx
		schemaDef = v.LookupPath(cue.ParsePath("#Config"))
	}
	return schemaCtx, schemaDef, nil
}

// SchemaError reports a config payload that does not satisfy the schema.
type SchemaError struct {
	Payload string
	Details string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("config_json does not match schema: %s", e.Details)
}

// ValidateConfig checks a config_json payload against the schema.
func ValidateConfig(payload []byte) error {
	schemaMu.Lock()
	defer schemaMu.Unlock()

	ctx, def, err := configDefinition()
	if err != nil {
		return err
	}

	v := ctx.CompileBytes(payload, cue.Filename("config_json"))
	if err := v.Err(); err != nil {
		return &SchemaError{Payload: string(payload), Details: cueerrors.Details(err, nil)}
	}

	u := def.Unify(v)
	if err := u.Validate(cue.Concrete(true)); err != nil {
		return &SchemaError{Payload: string(payload), Details: cueerrors.Details(err, nil)}
	}
	return nil
}
