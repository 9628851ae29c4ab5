//go:build mage

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
)

// flagTargets lists the targets that accept named flags after their name.
// Mage itself only passes positional parameters.
var flagTargets = map[string]bool{
	"test:run": true,
}

// mageValueFlags are the mage flags that consume the next argument.
var mageValueFlags = map[string]bool{
	"-d": true, "-w": true, "-t": true, "-gocmd": true,
	"-goos": true, "-goarch": true, "-ldflags": true, "-compile": true,
}

// targetArgs holds the arguments that follow a flag-taking target.
var targetArgs []string

func init() {
	os.Args, targetArgs = splitTargetArgs(os.Args)
}

// splitTargetArgs separates the arguments after a flag-taking target from
// the ones mage parses.
//
// "mage -v test:run -run TestInsertMany -pkg ./pkg/sqlite" splits into
// ["mage", "-v", "test:run"] and ["-run", "TestInsertMany", "-pkg", "./pkg/sqlite"].
func splitTargetArgs(args []string) (mageArgs, target []string) {
	for i := 1; i < len(args); i++ {
		arg := args[i]
		if mageValueFlags[arg] {
			i++
			continue
		}
		if strings.HasPrefix(arg, "-") {
			continue
		}
		// The first bare word is the target.
		if flagTargets[strings.ToLower(arg)] {
			return args[:i+1], args[i+1:]
		}
		break
	}
	return args, nil
}

// parseTargetFlags parses targetArgs into fs. It returns false without an
// error when -h only asked for usage.
func parseTargetFlags(fs *flag.FlagSet) (bool, error) {
	err := fs.Parse(targetArgs)
	if errors.Is(err, flag.ErrHelp) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", fs.Name(), err)
	}
	if fs.NArg() > 0 {
		return false, fmt.Errorf("%s: unexpected argument %q", fs.Name(), fs.Arg(0))
	}
	return true, nil
}
