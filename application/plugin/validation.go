package plugin

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	wrenIdentPattern  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	moduleNamePattern = regexp.MustCompile(`^[^\s"\\]+$`)
)

// wrenReserved are the Wren keywords that cannot name a class or method.
var wrenReserved = map[string]bool{
	"as": true, "break": true, "class": true, "construct": true, "continue": true,
	"else": true, "false": true, "for": true, "foreign": true, "if": true,
	"import": true, "in": true, "is": true, "null": true, "return": true,
	"static": true, "super": true, "this": true, "true": true, "var": true,
	"while": true,
}

// validate is a package-level singleton; building a validator is expensive.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Registration of built-in-compatible funcs cannot fail.
	_ = v.RegisterValidation("wren_ident", func(fl validator.FieldLevel) bool {
		return isWrenIdent(fl.Field().String())
	})
	_ = v.RegisterValidation("module_name", func(fl validator.FieldLevel) bool {
		return moduleNamePattern.MatchString(fl.Field().String())
	})
	return v
}

func isWrenIdent(s string) bool {
	return wrenIdentPattern.MatchString(s) && !wrenReserved[s]
}
