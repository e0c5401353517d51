package helpers

import (
	"strings"

	"github.com/juju/errors"
)

// FoldErrors joins non-nil errors one per line, nil when there are none.
// Used where several devices or config sections fail independently.
func FoldErrors(errs []error) error {
	lines := make([]string, 0, len(errs))
	for _, e := range errs {
		if e != nil {
			lines = append(lines, e.Error())
		}
	}
	switch len(lines) {
	case 0:
		return nil
	case 1:
		return errs[firstNonNil(errs)]
	}
	return errors.New(strings.Join(lines, "\n"))
}

func firstNonNil(errs []error) int {
	for i, e := range errs {
		if e != nil {
			return i
		}
	}
	return -1
}
