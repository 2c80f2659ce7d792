package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/pflag"
)

const (
	copyFlagTypeName            = "copy"
	invalidCopyFlagValueMessage = "invalid copy flag value '%s'"
)

// copyFlagValue is a boolean with its own type name so that "--copy <url>" keeps the URL positional.
type copyFlagValue struct {
	target *bool
}

func (value *copyFlagValue) Set(input string) error {
	parsed, known := parseBooleanLiteral(input)
	if !known || value.target == nil {
		return fmt.Errorf(invalidCopyFlagValueMessage, input)
	}
	*value.target = parsed
	return nil
}

func (value *copyFlagValue) String() string {
	if value == nil || value.target == nil {
		return strconv.FormatBool(false)
	}
	return strconv.FormatBool(*value.target)
}

func (value *copyFlagValue) Type() string {
	return copyFlagTypeName
}

func registerCopyFlag(flagSet *pflag.FlagSet, target *bool) {
	if flagSet == nil || target == nil {
		return
	}
	*target = false
	flagSet.Var(&copyFlagValue{target: target}, copyFlagName, copyFlagDescription)
	flagSet.Lookup(copyFlagName).NoOptDefVal = booleanFlagTrueLiteral
}

// normalizeCopyFlagArguments folds "--copy no" into "--copy=no". Any other following
// argument, such as a repository URL, stays positional.
func normalizeCopyFlagArguments(arguments []string) []string {
	return foldFlagLiterals(arguments, func(flagName string) bool {
		return flagName == copyFlagName
	})
}
