// SPDX-License-Identifier: MIT

package paperless

import (
	"context"
	"fmt"
)

// DefaultOwner returns the user named by object_owner.
func (s *Session) DefaultOwner(ctx context.Context) (User, error) {
	return s.users.GetOrLoad(ctx, s.objectOwner, lookupTTL, func(ctx context.Context) (User, error) {
		var matches []User
		err := each(ctx, s, ObjectUser, nil, func(u User) error {
			if u.Username == s.objectOwner {
				matches = append(matches, u)
			}
			return nil
		})
		if err != nil {
			return User{}, fmt.Errorf("list users: %w", err)
		}
		return exactlyOne(matches, ObjectUser, s.objectOwner)
	})
}

// DefaultAccessGroup returns the group named by all_access_group.
func (s *Session) DefaultAccessGroup(ctx context.Context) (Group, error) {
	return s.groups.GetOrLoad(ctx, s.allAccessGroup, lookupTTL, func(ctx context.Context) (Group, error) {
		var matches []Group
		err := each(ctx, s, ObjectGroup, nil, func(g Group) error {
			if g.Name == s.allAccessGroup {
				matches = append(matches, g)
			}
			return nil
		})
		if err != nil {
			return Group{}, fmt.Errorf("list groups: %w", err)
		}
		return exactlyOne(matches, ObjectGroup, s.allAccessGroup)
	})
}

// DefaultPermissions grants change to the default access group and view to nobody else.
func (s *Session) DefaultPermissions(ctx context.Context) (Permissions, error) {
	group, err := s.DefaultAccessGroup(ctx)
	if err != nil {
		return Permissions{}, err
	}
	return Permissions{
		View:   UsersAndGroups{Users: []int{}, Groups: []int{}},
		Change: UsersAndGroups{Users: []int{}, Groups: []int{group.ID}},
	}, nil
}
