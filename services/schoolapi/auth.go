package schoolapi

import (
	"context"

	"github.com/trezcool/masomo-portal/core/session"
	"github.com/trezcool/masomo-portal/core/user"
)

var _ session.Authenticator = (*Client)(nil)

func (c *Client) Login(ctx context.Context, creds user.Credentials) (user.AuthResult, error) {
	var res user.AuthResult
	err := c.post(ctx, "", "/auth/login", creds, &res)
	return res, err
}

func (c *Client) Signup(ctx context.Context, acct user.NewAccount) (user.AuthResult, error) {
	var res user.AuthResult
	err := c.post(ctx, "", "/auth/signup", acct, &res)
	return res, err
}

// CurrentUser returns the identity the token belongs to.
func (c *Client) CurrentUser(ctx context.Context, token string) (user.User, error) {
	var usr user.User
	err := c.get(ctx, token, "/auth/me", &usr)
	return usr, err
}
