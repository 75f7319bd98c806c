// Package utils holds small formatting and cleanup helpers used by the
// fastipc package and its demo/bench CLI, adapted from the reference app's
// pkg/utils.
package utils

import (
	"bytes"
	"fmt"
	"io"

	"github.com/fatih/color"
)

// multiErr aggregates several close errors into one, same shape as the
// reference app's CloseMany helper.
type multiErr []error

func (m multiErr) Error() string {
	var b bytes.Buffer
	b.WriteString("encountered multiple errors:")
	for _, err := range m {
		b.WriteString("\n\t... " + err.Error())
	}
	return b.String()
}

// CloseMany closes every closer, continuing past individual failures, and
// returns an aggregate error if any failed.
func CloseMany(closers []io.Closer) error {
	errs := make([]error, 0, len(closers))
	for _, c := range closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return multiErr(errs)
	}
	return nil
}

// ColoredString wraps str in the given terminal color attribute.
func ColoredString(str string, attr color.Attribute) string {
	return color.New(attr).SprintFunc()(str)
}

// FormatDecimalBytes renders b using decimal (1000-based) unit prefixes.
func FormatDecimalBytes(b int) string {
	const unit = 1000
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "kMGTPE"[exp])
}
