package fsutil

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Owner is a parsed UID/GID pair for output file ownership.
type Owner struct {
	UID int
	GID int
}

// ParseOwner parses a "UID:GID" string. An empty string returns nil.
func ParseOwner(owner string) (*Owner, error) {
	if owner == "" {
		return nil, nil
	}

	uidStr, gidStr, ok := strings.Cut(owner, ":")
	if !ok || strings.Contains(gidStr, ":") {
		return nil, fmt.Errorf("invalid format %q, expected UID:GID", owner)
	}

	uid, err := strconv.Atoi(uidStr)
	if err != nil || uid < 0 {
		return nil, fmt.Errorf("invalid UID %q", uidStr)
	}

	gid, err := strconv.Atoi(gidStr)
	if err != nil || gid < 0 {
		return nil, fmt.Errorf("invalid GID %q", gidStr)
	}

	return &Owner{UID: uid, GID: gid}, nil
}

// ChownAll hands every path to owner. A nil owner is a no-op; missing
// paths are skipped.
func ChownAll(owner *Owner, paths ...string) error {
	if owner == nil {
		return nil
	}

	var errs []error

	for _, p := range paths {
		if err := os.Chown(p, owner.UID, owner.GID); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("chown %s: %w", p, err))
		}
	}

	return errors.Join(errs...)
}
