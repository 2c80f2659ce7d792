package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	booleanFlagTypeName              = "bool"
	booleanFlagTrueLiteral           = "true"
	booleanFlagAcceptedValuesListing = "true, false, yes, no, on, off, 1, 0"
	invalidBooleanFlagValueFormat    = "invalid boolean value %q for --%s; accepted values: %s"
)

var booleanLiterals = map[string]bool{
	"true":  true,
	"t":     true,
	"1":     true,
	"yes":   true,
	"y":     true,
	"on":    true,
	"false": false,
	"f":     false,
	"0":     false,
	"no":    false,
	"n":     false,
	"off":   false,
}

// parseBooleanLiteral interprets a flag value; a blank value means true.
func parseBooleanLiteral(input string) (bool, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return true, true
	}
	parsed, known := booleanLiterals[normalized]
	return parsed, known
}

// booleanFlagValue accepts yes/no style literals in addition to strconv booleans.
type booleanFlagValue struct {
	target *bool
	name   string
}

func (value *booleanFlagValue) Set(input string) error {
	parsed, known := parseBooleanLiteral(input)
	if !known || value.target == nil {
		return fmt.Errorf(invalidBooleanFlagValueFormat, input, value.name, booleanFlagAcceptedValuesListing)
	}
	*value.target = parsed
	return nil
}

func (value *booleanFlagValue) String() string {
	if value == nil || value.target == nil {
		return strconv.FormatBool(false)
	}
	return strconv.FormatBool(*value.target)
}

func (value *booleanFlagValue) Type() string {
	return booleanFlagTypeName
}

func registerBooleanFlag(flagSet *pflag.FlagSet, target *bool, name string, defaultValue bool, usage string) {
	if flagSet == nil || target == nil {
		return
	}
	*target = defaultValue
	flagSet.Var(&booleanFlagValue{target: target, name: name}, name, usage)
	lookup := flagSet.Lookup(name)
	lookup.DefValue = strconv.FormatBool(defaultValue)
	lookup.NoOptDefVal = booleanFlagTrueLiteral
}

// normalizeBooleanFlagArguments folds "--flag no" into "--flag=no" for every boolean flag
// known to the command tree, so that a space-separated literal is not read as a positional argument.
func normalizeBooleanFlagArguments(command *cobra.Command, arguments []string) []string {
	names := booleanFlagNames(command)
	if len(names) == 0 {
		return arguments
	}
	return foldFlagLiterals(arguments, func(flagName string) bool {
		_, known := names[flagName]
		return known
	})
}

// foldFlagLiterals rewrites "--name literal" pairs for flags matched by accepts.
// Arguments after "--" are left untouched.
func foldFlagLiterals(arguments []string, accepts func(string) bool) []string {
	normalized := make([]string, 0, len(arguments))
	for index := 0; index < len(arguments); index++ {
		current := arguments[index]
		if current == "--" {
			return append(normalized, arguments[index:]...)
		}
		if strings.HasPrefix(current, "--") && !strings.Contains(current, "=") && index+1 < len(arguments) {
			flagName := strings.TrimPrefix(current, "--")
			next := arguments[index+1]
			if accepts(flagName) && !strings.HasPrefix(next, "-") && strings.TrimSpace(next) != "" {
				if _, known := parseBooleanLiteral(next); known {
					normalized = append(normalized, current+"="+next)
					index++
					continue
				}
			}
		}
		normalized = append(normalized, current)
	}
	return normalized
}

func booleanFlagNames(command *cobra.Command) map[string]struct{} {
	names := map[string]struct{}{}
	var visit func(*cobra.Command)
	visit = func(current *cobra.Command) {
		if current == nil {
			return
		}
		for _, flagSet := range []*pflag.FlagSet{current.PersistentFlags(), current.Flags()} {
			flagSet.VisitAll(func(flag *pflag.Flag) {
				if flag.Value != nil && flag.Value.Type() == booleanFlagTypeName {
					names[flag.Name] = struct{}{}
				}
			})
		}
		for _, child := range current.Commands() {
			visit(child)
		}
	}
	visit(command)
	return names
}
