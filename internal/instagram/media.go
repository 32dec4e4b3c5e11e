package instagram

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// recentMediaLimit is the fixed page size for recent media fetches.
const recentMediaLimit = 4

// ResolveBusinessAccount returns the ID of the Instagram business account
// reachable with the given token, found by walking the pages the token
// grants access to.
func (c *Client) ResolveBusinessAccount(ctx context.Context, token string) (string, error) {
	params := url.Values{"fields": {"instagram_business_account"}}
	req, err := c.newRequest(ctx, "/me/accounts", params, token)
	if err != nil {
		return "", err
	}

	var accounts accountsResponse
	if err := c.do(req, &accounts); err != nil {
		return "", err
	}

	for _, page := range accounts.Data {
		if page.InstagramBusinessAccount != nil && page.InstagramBusinessAccount.ID != "" {
			return page.InstagramBusinessAccount.ID, nil
		}
	}
	return "", fmt.Errorf("no instagram business account linked to this token")
}

// ListRecentMedia returns the newest media entries of a business account,
// capped at the fixed page size.
func (c *Client) ListRecentMedia(ctx context.Context, token, userID string) ([]Media, error) {
	params := url.Values{
		"fields": {"id,caption,media_type,media_url,permalink,thumbnail_url,timestamp"},
		"limit":  {strconv.Itoa(recentMediaLimit)},
	}
	req, err := c.newRequest(ctx, "/"+url.PathEscape(userID)+"/media", params, token)
	if err != nil {
		return nil, err
	}

	var list mediaListResponse
	if err := c.do(req, &list); err != nil {
		return nil, err
	}
	if len(list.Data) > recentMediaLimit {
		list.Data = list.Data[:recentMediaLimit]
	}
	return list.Data, nil
}
