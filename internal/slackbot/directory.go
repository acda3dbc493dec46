package slackbot

import (
	"context"
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// directoryCacheSize bounds the ID-to-name cache. Display names drift
// rarely; a stale entry costs nothing but a dated label in a chunk.
const directoryCacheSize = 2048

// Directory resolves Slack user IDs to display names. Lookups are
// cached, and concurrent misses for the same ID collapse into a single
// users.info call.
type Directory struct {
	api   API
	cache *lru.Cache[string, string]
	group singleflight.Group
}

func NewDirectory(api API) (*Directory, error) {
	cache, err := lru.New[string, string](directoryCacheSize)
	if err != nil {
		return nil, err
	}
	return &Directory{api: api, cache: cache}, nil
}

func (d *Directory) Resolve(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", errors.New("empty user id")
	}
	if name, ok := d.cache.Get(userID); ok {
		return name, nil
	}

	v, err, _ := d.group.Do(userID, func() (any, error) {
		user, err := d.api.GetUserInfoContext(ctx, userID)
		if err != nil {
			return nil, err
		}
		name := user.RealName
		if name == "" {
			name = user.Name
		}
		if name == "" {
			name = userID
		}
		d.cache.Add(userID, name)
		return name, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
