// Package commands – music lookup.
package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nimbusbot/nimbus/internal/bot"
	"github.com/nimbusbot/nimbus/internal/music"
)

// musicCacheTTL bounds how long a looked-up track is served from the cache
// before hitting the iTunes API again.
const musicCacheTTL = 10 * time.Minute

func musicDefs() []*bot.Definition {
	return []*bot.Definition{
		{
			Name:        "music",
			Aliases:     []string{"song"},
			Category:    "music",
			Description: "Look up a song.",
			Usage:       "{prefix}music <title or artist>",
			Cooldown:    10 * time.Second,
			Run:         runMusic,
		},
	}
}

func runMusic(ctx context.Context, c *bot.Context) error {
	query := c.Rest(0)
	if query == "" {
		c.Reply(ctx, "Usage: "+renderUsage(c, "music <title or artist>"))
		return nil
	}
	cacheKey := "music:" + strings.ToLower(query)
	if cached, ok := c.Cache.Get(ctx, cacheKey); ok {
		c.Reply(ctx, cached)
		return nil
	}
	tracks, err := c.Music.Search(ctx, query, 1)
	if errors.Is(err, music.ErrNoResults) {
		c.Reply(ctx, fmt.Sprintf("No songs found for %q.", query))
		return nil
	}
	if err != nil {
		return err
	}
	t := tracks[0]
	mins := int(t.Duration.Minutes())
	secs := int(t.Duration.Seconds()) % 60
	reply := fmt.Sprintf(
		"🎵 %s — %s\nAlbum: %s\nLength: %d:%02d\n%s",
		t.Title, t.Artist, t.Album, mins, secs, t.URL,
	)
	c.Cache.SetTTL(ctx, cacheKey, reply, musicCacheTTL)
	c.Reply(ctx, reply)
	return nil
}
