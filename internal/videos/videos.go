// Package videos looks up tutorial videos for exercises and meals.
package videos

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"ai-health-advisor/internal/health"
	"ai-health-advisor/internal/logger"
)

const (
	watchURL       = "https://www.youtube.com/watch?v="
	defaultTimeout = 10 * time.Second

	// ExerciseSuffix and RecipeSuffix complete a search query.
	ExerciseSuffix = "exercise tutorial"
	RecipeSuffix   = "recipe"
)

var ErrNoResults = errors.New("no video found")

// Finder searches YouTube, one result per name.
type Finder struct {
	svc     *youtube.Service
	timeout time.Duration
	log     *logger.Logger
}

// NewFinder builds a Finder authenticated with an API key. Extra client
// options are appended, which lets tests point it at a local server.
func NewFinder(ctx context.Context, apiKey string, log *logger.Logger, opts ...option.ClientOption) (*Finder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("YOUTUBE_API_KEY environment variable not set")
	}
	svc, err := youtube.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube client: %w", err)
	}
	return &Finder{svc: svc, timeout: defaultTimeout, log: log.With("component", "videos")}, nil
}

// FindTutorial returns the top search hit for "{name} {suffix}".
func (f *Finder) FindTutorial(ctx context.Context, name, suffix string) (health.Tutorial, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	query := strings.TrimSpace(name + " " + suffix)
	resp, err := f.svc.Search.List([]string{"snippet"}).
		Q(query).
		MaxResults(1).
		Type("video").
		Context(ctx).
		Do()
	if err != nil {
		return health.Tutorial{}, fmt.Errorf("youtube search %q: %w", query, err)
	}
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		t := health.Tutorial{Name: name, URL: watchURL + item.Id.VideoId}
		if item.Snippet != nil {
			t.Title = item.Snippet.Title
		}
		return t, nil
	}
	return health.Tutorial{}, fmt.Errorf("%w for %q", ErrNoResults, query)
}

// FindTutorials looks up at most max names in order. A failed lookup is
// logged and skipped.
func (f *Finder) FindTutorials(ctx context.Context, names []string, suffix string, max int) []health.Tutorial {
	if max > 0 && len(names) > max {
		names = names[:max]
	}
	out := []health.Tutorial{}
	for _, name := range names {
		t, err := f.FindTutorial(ctx, name, suffix)
		if err != nil {
			f.log.Warn("tutorial lookup failed", "name", name, "error", err)
			continue
		}
		out = append(out, t)
	}
	return out
}
