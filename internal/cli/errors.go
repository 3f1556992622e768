package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"taskpilot/internal/store"
)

type notFoundError struct {
	kind string
	id   string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.kind, e.id)
}

func errNotFound(kind string, id int64) error {
	return notFoundError{kind: kind, id: strconv.FormatInt(id, 10)}
}

// notFoundAs rewrites a store miss into the CLI's not-found error.
func notFoundAs(err error, kind string, id int64) error {
	if errors.Is(err, store.ErrNotFound) {
		return errNotFound(kind, id)
	}
	return err
}

type outOfRangeError struct {
	index int
	count int
}

func (e outOfRangeError) Error() string {
	if e.count == 0 {
		return fmt.Sprintf("index %d out of range: list is empty", e.index)
	}
	return fmt.Sprintf("index %d out of range: expected 0..%d", e.index, e.count-1)
}

func parseID(kind, s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id: %q", kind, s)
	}
	return id, nil
}
