package cmd

import (
	"fmt"

	"github.com/spf13/pflag"
)

// bindFlag makes a flag override the setting at key. Flags are registered in init functions, so a failure is a
// programming error.
func bindFlag(key string, flag *pflag.Flag) {
	if flag == nil {
		panic(fmt.Sprintf("no flag to bind to setting '%s'", key))
	}
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("failed to bind flag '%s' to setting '%s': %v", flag.Name, key, err))
	}
}
