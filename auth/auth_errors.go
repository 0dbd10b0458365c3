package auth

import (
	"fmt"

	apperrors "github.com/jrsteele09/go-medapp/internal/errors"
	"github.com/pkg/errors"
)

var (
	// ErrSuperseded is returned by an operation whose result arrived after a newer
	// login, register or logout. The result was discarded.
	ErrSuperseded = errors.New("superseded by a newer session action")
	// ErrNoUser means the backend answered without a user profile
	ErrNoUser = errors.New("response carried no user")
)

// failure makes cause match kind while keeping cause reachable with errors.Is/As.
func failure(kind error, op string, cause error) error {
	if apperrors.Is(cause, kind) {
		return errors.Wrapf(cause, "[Manager.%s]", op)
	}
	return errors.Wrapf(fmt.Errorf("%w: %w", kind, cause), "[Manager.%s]", op)
}
