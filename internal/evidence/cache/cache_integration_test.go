//go:build integration

package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"debrief/internal/evidence"
	"debrief/internal/evidence/cache"
	"debrief/pkg/testutil/containers"
)

// countingSource records how many calls reach the underlying search API so
// tests can distinguish cache hits from fall-throughs.
type countingSource struct {
	searchCalls int
	countCalls  int
	snippets    []evidence.Snippet
	count       int
	err         error
}

func (c *countingSource) Configured() bool { return true }

func (c *countingSource) Search(ctx context.Context, query string, limit int) ([]evidence.Snippet, error) {
	c.searchCalls++
	if c.err != nil {
		return nil, c.err
	}
	return c.snippets, nil
}

func (c *countingSource) CountByType(ctx context.Context, query string, citationType string) (int, error) {
	c.countCalls++
	if c.err != nil {
		return 0, c.err
	}
	return c.count, nil
}

type CachedSourceSuite struct {
	suite.Suite
	redis *containers.RedisContainer
}

func TestCachedSourceSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(CachedSourceSuite))
}

func (s *CachedSourceSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
}

func (s *CachedSourceSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *CachedSourceSuite) TestSearchServedFromCacheOnSecondCall() {
	inner := &countingSource{snippets: []evidence.Snippet{
		{Text: "clip before division reduces bile duct injury", Title: "Study A", DocumentID: "doc-a"},
		{Text: "critical view of safety is protective", Title: "Study B", DocumentID: "doc-b"},
	}}
	source := cache.New(inner, s.redis.Client, time.Minute)
	ctx := context.Background()

	first, err := source.Search(ctx, "cystic duct clipping", 5)
	s.Require().NoError(err)
	s.Len(first, 2)
	s.Equal(1, inner.searchCalls)

	second, err := source.Search(ctx, "cystic duct clipping", 5)
	s.Require().NoError(err)
	s.Equal(first, second)
	s.Equal(1, inner.searchCalls, "second identical query should not reach the source")
}

func (s *CachedSourceSuite) TestSearchKeyVariesByQueryAndLimit() {
	inner := &countingSource{snippets: []evidence.Snippet{{Text: "t", DocumentID: "d"}}}
	source := cache.New(inner, s.redis.Client, time.Minute)
	ctx := context.Background()

	_, err := source.Search(ctx, "query one", 5)
	s.Require().NoError(err)
	_, err = source.Search(ctx, "query two", 5)
	s.Require().NoError(err)
	_, err = source.Search(ctx, "query one", 3)
	s.Require().NoError(err)

	s.Equal(3, inner.searchCalls)
}

func (s *CachedSourceSuite) TestSearchErrorIsNotCached() {
	inner := &countingSource{err: errors.New("search backend unavailable")}
	source := cache.New(inner, s.redis.Client, time.Minute)
	ctx := context.Background()

	_, err := source.Search(ctx, "failing query", 5)
	s.Require().Error(err)

	inner.err = nil
	inner.snippets = []evidence.Snippet{{Text: "recovered", DocumentID: "doc-r"}}

	snippets, err := source.Search(ctx, "failing query", 5)
	s.Require().NoError(err)
	s.Len(snippets, 1)
	s.Equal(2, inner.searchCalls)
}

func (s *CachedSourceSuite) TestCorruptEntryFallsThrough() {
	inner := &countingSource{snippets: []evidence.Snippet{{Text: "fresh", DocumentID: "doc-f"}}}
	source := cache.New(inner, s.redis.Client, time.Minute)
	ctx := context.Background()

	// Warm the cache, then corrupt the stored entry directly.
	_, err := source.Search(ctx, "corrupt me", 5)
	s.Require().NoError(err)

	keys, err := s.redis.Client.Keys(ctx, "ev:search:*").Result()
	s.Require().NoError(err)
	s.Require().Len(keys, 1)
	s.Require().NoError(s.redis.Client.Set(ctx, keys[0], "{not json", time.Minute).Err())

	snippets, err := source.Search(ctx, "corrupt me", 5)
	s.Require().NoError(err)
	s.Len(snippets, 1)
	s.Equal(2, inner.searchCalls)
}

func (s *CachedSourceSuite) TestCountByTypeCachedPerCitationType() {
	inner := &countingSource{count: 7}
	source := cache.New(inner, s.redis.Client, time.Minute)
	ctx := context.Background()

	count, err := source.CountByType(ctx, "bile duct injury", "supporting")
	s.Require().NoError(err)
	s.Equal(7, count)

	count, err = source.CountByType(ctx, "bile duct injury", "supporting")
	s.Require().NoError(err)
	s.Equal(7, count)
	s.Equal(1, inner.countCalls)

	_, err = source.CountByType(ctx, "bile duct injury", "contrasting")
	s.Require().NoError(err)
	s.Equal(2, inner.countCalls, "contrasting counts use a separate key")
}

func (s *CachedSourceSuite) TestEntriesExpire() {
	inner := &countingSource{snippets: []evidence.Snippet{{Text: "short lived", DocumentID: "doc-s"}}}
	source := cache.New(inner, s.redis.Client, time.Second)
	ctx := context.Background()

	_, err := source.Search(ctx, "ephemeral", 5)
	s.Require().NoError(err)

	time.Sleep(1500 * time.Millisecond)

	_, err = source.Search(ctx, "ephemeral", 5)
	s.Require().NoError(err)
	s.Equal(2, inner.searchCalls)
}

func (s *CachedSourceSuite) TestNilClientReturnsInnerUnchanged() {
	inner := &countingSource{}
	source := cache.New(inner, nil, time.Minute)
	s.Same(evidence.Source(inner), source)
}
