// Package feedimport prefills a show submission from a podcast or
// station RSS/Atom feed.
package feedimport

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/radiograb/internal/pipeline"
	"github.com/radiograb/pkg/logger"
	"github.com/radiograb/pkg/ratelimit"
)

// Importer fetches feeds and turns them into submission fields
type Importer struct {
	parser  *gofeed.Parser
	limiter *ratelimit.MultiLimiter
	log     *logger.Logger
}

// New creates an importer. limiter may be nil.
func New(limiter *ratelimit.MultiLimiter, log *logger.Logger) *Importer {
	return &Importer{
		parser:  gofeed.NewParser(),
		limiter: limiter,
		log:     log.WithComponent("feedimport"),
	}
}

// Fetch downloads feedURL and returns the fields it could fill in. The
// result never carries a schedule; the caller must add one.
func (i *Importer) Fetch(ctx context.Context, feedURL string) (url.Values, error) {
	if i.limiter != nil {
		if err := i.limiter.Wait(ctx, ratelimit.LimiterFeed); err != nil {
			return nil, fmt.Errorf("rate limit error: %w", err)
		}
	}

	i.log.Debug().Str("url", feedURL).Msg("Fetching feed")
	feed, err := i.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", feedURL, err)
	}

	form := FromFeed(feed)
	i.log.Info().
		Str("url", feedURL).
		Str("name", form.Get(pipeline.FieldName)).
		Int("items", len(feed.Items)).
		Msg("Feed imported")
	return form, nil
}

// FromFeed maps feed metadata onto submission fields and marks the
// submission auto-imported.
func FromFeed(feed *gofeed.Feed) url.Values {
	form := url.Values{}
	setIf(form, pipeline.FieldName, cleanText(feed.Title))
	setIf(form, pipeline.FieldDescription, cleanText(feed.Description))
	setIf(form, pipeline.FieldHost, host(feed))
	setIf(form, pipeline.FieldGenre, genre(feed))
	setIf(form, pipeline.FieldImageURL, image(feed))
	form.Set(pipeline.FieldAutoImported, "1")
	return form
}

// Merge returns prefill overlaid with every field set in overrides
func Merge(prefill, overrides url.Values) url.Values {
	out := url.Values{}
	for k, v := range prefill {
		out[k] = append([]string(nil), v...)
	}
	for k, v := range overrides {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func setIf(form url.Values, key, value string) {
	if value != "" {
		form.Set(key, value)
	}
}

func host(feed *gofeed.Feed) string {
	if feed.ITunesExt != nil && strings.TrimSpace(feed.ITunesExt.Author) != "" {
		return strings.TrimSpace(feed.ITunesExt.Author)
	}
	for _, p := range feed.Authors {
		if p != nil && strings.TrimSpace(p.Name) != "" {
			return strings.TrimSpace(p.Name)
		}
	}
	return ""
}

func genre(feed *gofeed.Feed) string {
	if feed.ITunesExt != nil {
		for _, c := range feed.ITunesExt.Categories {
			if c != nil && c.Text != "" {
				return c.Text
			}
		}
	}
	for _, c := range feed.Categories {
		if strings.TrimSpace(c) != "" {
			return strings.TrimSpace(c)
		}
	}
	return ""
}

func image(feed *gofeed.Feed) string {
	if feed.Image != nil && feed.Image.URL != "" {
		return feed.Image.URL
	}
	if feed.ITunesExt != nil {
		return feed.ITunesExt.Image
	}
	return ""
}

// cleanText removes HTML tags and extra whitespace
func cleanText(text string) string {
	text = strings.ReplaceAll(text, "<br>", " ")
	text = strings.ReplaceAll(text, "<br/>", " ")
	text = strings.ReplaceAll(text, "<br />", " ")
	text = strings.ReplaceAll(text, "</p>", " ")
	text = strings.ReplaceAll(text, "<p>", "")

	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
		} else if r == '>' {
			inTag = false
		} else if !inTag {
			result.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(result.String()), " ")
}
