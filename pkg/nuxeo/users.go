package nuxeo

import (
	"context"
	"net/url"
)

// UsersAPI manages directory user accounts.
type UsersAPI struct {
	endpoint
}

func newUsersAPI(c *Client) *UsersAPI {
	return &UsersAPI{endpoint: newEndpoint(c, "user")}
}

func (a *UsersAPI) attach(u *User) *User {
	if u != nil {
		u.api = a
	}
	return u
}

// Get fetches a user by id.
func (a *UsersAPI) Get(ctx context.Context, id string) (*User, error) {
	var user User
	if err := a.get(ctx, id, &user); err != nil {
		return nil, err
	}
	return a.attach(&user), nil
}

// Create registers a new user.
func (a *UsersAPI) Create(ctx context.Context, user *User) (*User, error) {
	if user.EntityType == "" {
		user.EntityType = "user"
	}
	var created User
	if err := a.post(ctx, "", user, &created); err != nil {
		return nil, err
	}
	return a.attach(&created), nil
}

// Update persists a user's local changes.
func (a *UsersAPI) Update(ctx context.Context, user *User) (*User, error) {
	var updated User
	if err := a.put(ctx, "", user, &updated); err != nil {
		return nil, err
	}
	return a.attach(&updated), nil
}

// Delete removes a user account.
func (a *UsersAPI) Delete(ctx context.Context, id string) error {
	return a.delete(ctx, id)
}

// Exists probes for a user by id.
func (a *UsersAPI) Exists(ctx context.Context, id string) (bool, error) {
	return a.exists(ctx, id)
}

// Search finds users matching a pattern.
func (a *UsersAPI) Search(ctx context.Context, pattern string) ([]User, error) {
	query := url.Values{}
	query.Set("q", pattern)

	var users []User
	if err := a.get(ctx, "search", &users, WithQuery(query)); err != nil {
		return nil, err
	}
	for i := range users {
		users[i].api = a
	}
	return users, nil
}
