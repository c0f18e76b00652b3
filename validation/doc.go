// Package validation checks declarative configuration.
//
// It supports both struct tag validation (using the validator library) and
// programmatic validation with error collection. Failures are reported as
// configuration errors listing every offending field.
//
// # Struct Tag Validation
//
//	type API struct {
//	    Host    string        `validate:"required,url"`
//	    Timeout time.Duration `validate:"gte=0"`
//	}
//	err := validation.Validate(cfg)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Required("products.meetbouten.source", p.Source)
//	v.OneOf("sources.meetbouten.type", s.Type, []string{"rest", "graphql", "streaming"})
//	err := v.Err()
package validation
