package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	domainconfig "github.com/felixgeelhaar/tastate/domain/config"
)

// envRef matches ${NAME}, ${NAME:-default}, ${NAME:?message} and $NAME.
// Submatches: 1 braced name, 2 modifier, 3 modifier argument, 4 bare name.
var envRef = regexp.MustCompile(`\$(?:\{([A-Za-z_][A-Za-z0-9_]*)(?:(:[-?])([^}]*))?\}|([A-Za-z_][A-Za-z0-9_]*))`)

// envExpander substitutes environment references in configuration text.
type envExpander struct {
	// strict reports unset plain references as missing.
	strict bool
	// lookup defaults to os.LookupEnv.
	lookup func(string) (string, bool)
}

// Expand substitutes every reference in input in one pass, so values that
// themselves contain a dollar sign are left alone.
//
//	${NAME}          value of NAME, empty when unset
//	${NAME:-text}    value of NAME, text when unset or empty
//	${NAME:?text}    value of NAME, an error naming text when unset or empty
//	$NAME            same as ${NAME}
func (e *envExpander) Expand(input string) (string, error) {
	lookup := e.lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	var missing []string
	out := envRef.ReplaceAllStringFunc(input, func(ref string) string {
		m := envRef.FindStringSubmatch(ref)
		name, modifier, arg := m[1], m[2], m[3]
		if name == "" {
			name = m[4]
		}
		value, set := lookup(name)

		switch modifier {
		case ":-":
			if value == "" {
				return arg
			}
		case ":?":
			if value == "" {
				missing = append(missing, name+": "+arg)
				return ref
			}
		default:
			if !set && e.strict {
				missing = append(missing, name)
			}
		}
		return value
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", domainconfig.ErrMissingEnvVar, strings.Join(missing, ", "))
	}
	return out, nil
}

// ExpandEnv substitutes environment references, leaving unset ones empty.
// Required references that are unset leave the input unchanged.
func ExpandEnv(input string) string {
	out, err := (&envExpander{}).Expand(input)
	if err != nil {
		return input
	}
	return out
}

// ExpandEnvStrict substitutes environment references and fails on any
// that are unset.
func ExpandEnvStrict(input string) (string, error) {
	return (&envExpander{strict: true}).Expand(input)
}
