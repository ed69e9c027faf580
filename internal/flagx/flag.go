// Package flagx provides small helpers for parsing command-line flags
// in isolation from whatever else os.Args might carry.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs returns the subset of args that matches one of
// allowedFlags, in both "-flag value" and "-flag=value" forms. Other
// arguments are dropped so a scoped flag.FlagSet can parse cleanly
// without tripping over flags it doesn't own.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}
	return filtered
}

// ConfigFileFlag extracts the --config/-config/-c value from os.Args,
// ignoring every other flag the process might have been started with.
func ConfigFileFlag() string {
	var path string

	args := FilterArgs(os.Args[1:], []string{"-c", "-config", "--config"})

	fs := flag.NewFlagSet("configfile", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "path to JSON config file")
	fs.StringVar(&path, "c", "", "path to JSON config file (short)")
	_ = fs.Parse(normalizeDoubleDash(args))

	return path
}

// normalizeDoubleDash strips a leading "--" down to "-" so the
// standard flag package (which treats both forms as equivalent for
// named flags it knows about) doesn't see an unrecognized "--config"
// token when only "-config" was registered.
func normalizeDoubleDash(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if strings.HasPrefix(a, "--") {
			out[i] = a[1:]
		} else {
			out[i] = a
		}
	}
	return out
}
