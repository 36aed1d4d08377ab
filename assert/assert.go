package assert

import (
	"fmt"

	"github.com/bloeys/spot/logging"
)

// T panics with the formatted message when check is false. It is meant for
// programmer errors (broken invariants), not for conditions callers are
// expected to recover from.
func T(check bool, msg string, args ...any) {

	if check {
		return
	}

	if len(args) == 0 {
		logging.ErrLog.Panicln("Assert failed: " + msg)
	}

	logging.ErrLog.Panicln("Assert failed: " + fmt.Sprintf(msg, args...))
}
