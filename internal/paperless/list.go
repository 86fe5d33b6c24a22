// SPDX-License-Identifier: MIT

package paperless

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// each walks every page of a collection, calling fn for each result. It
// stops at the first error returned by fn.
func each[T any](ctx context.Context, s *Session, objType ObjectType, query url.Values, fn func(T) error) error {
	ref := objType.endpoint()
	seen := make(map[string]struct{})

	for ref != "" {
		if _, dup := seen[ref]; dup {
			return &APIError{Sentinel: ErrBadResponse, Operation: "GET " + ref, Body: "pagination loop"}
		}
		seen[ref] = struct{}{}

		var p page[T]
		if err := s.getJSON(ctx, ref, query, &p); err != nil {
			return err
		}
		for _, item := range p.Results {
			if err := fn(item); err != nil {
				return err
			}
		}

		// The next link already carries every query parameter.
		ref, query = nextRef(p.Next), nil
	}
	return nil
}

func list[T any](ctx context.Context, s *Session, objType ObjectType, query url.Values) ([]T, error) {
	var out []T
	err := each(ctx, s, objType, query, func(item T) error {
		out = append(out, item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func permsQuery(fullPermissions bool) url.Values {
	if !fullPermissions {
		return nil
	}
	return url.Values{"full_perms": []string{"true"}}
}

type named interface {
	objectName() string
	objectID() int
}

// lookupByName returns the single object of objType whose name equals name,
// ignoring case.
func lookupByName[T named](ctx context.Context, s *Session, objType ObjectType, name string) (T, error) {
	var matches []T
	query := url.Values{"name__iexact": []string{name}}
	err := each(ctx, s, objType, query, func(item T) error {
		if strings.EqualFold(item.objectName(), name) {
			matches = append(matches, item)
		}
		return nil
	})

	var zero T
	if err != nil {
		return zero, err
	}
	return exactlyOne(matches, objType, name)
}

func exactlyOne[T any](matches []T, objType ObjectType, name string) (T, error) {
	var zero T
	switch len(matches) {
	case 0:
		return zero, fmt.Errorf("%w: no %s found matching '%s'", ErrNotFound, objType.Singular(), name)
	case 1:
		return matches[0], nil
	default:
		return zero, fmt.Errorf("%w: %d %ss found matching '%s'", ErrAmbiguous, len(matches), objType.Singular(), name)
	}
}
