package job

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind names the type of the root cause of err
func Kind(err error) string {
	return fmt.Sprintf("%T", errors.Cause(err))
}
