package config

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaCUE string

var (
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schemaDef  cue.Value
	schemaErr  error
)

// configSchema compiles the embedded schema once and returns the #Config
// definition.
func configSchema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		v := schemaCtx.CompileString(schemaCUE, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = err
			return
		}
		schemaDef = v.LookupPath(cue.ParsePath("#Config"))
		schemaErr = schemaDef.Err()
	})
	return schemaCtx, schemaDef, schemaErr
}

// validate unifies settings with #Config. When several values are wrong the
// error for the lexically first field is returned.
func validate(settings map[string]any) error {
	ctx, def, err := configSchema()
	if err != nil {
		return &ValidationError{Message: "schema: " + err.Error()}
	}

	data := ctx.Encode(settings)
	if err := data.Err(); err != nil {
		return &ValidationError{Message: err.Error()}
	}

	err = def.Unify(data).Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	issues := make([]*ValidationError, 0, 1)
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		path := e.Path()
		if len(path) > 0 && path[0] == "#Config" {
			path = path[1:]
		}
		issues = append(issues, &ValidationError{
			Field:   strings.Join(path, "."),
			Message: fmt.Sprintf(format, args...),
		})
	}
	if len(issues) == 0 {
		return &ValidationError{Message: err.Error()}
	}
	slices.SortStableFunc(issues, func(a, b *ValidationError) int {
		return strings.Compare(a.Field, b.Field)
	})
	return issues[0]
}
