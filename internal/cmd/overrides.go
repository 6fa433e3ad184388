package cmd

import (
	"sort"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagOverrides turns the flags the user actually set into a nested config
// map. Unchanged flags are left out so file and environment values survive.
func flagOverrides(flags *pflag.FlagSet, bindings map[string]string) (map[string]any, error) {
	v := viper.New()

	keys := make([]string, 0, len(bindings))
	for key := range bindings {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		flag := flags.Lookup(bindings[key])
		if flag == nil || !flag.Changed {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, err
		}
	}
	return v.AllSettings(), nil
}
