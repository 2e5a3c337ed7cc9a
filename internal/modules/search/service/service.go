package service

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/meilisearch/meilisearch-go"
	"github.com/rs/zerolog/log"

	"pkujx.cn/library/internal/entity"
	"pkujx.cn/library/pkg/sanitizer"
)

const postsIndex = "blog_posts"

// PostIndexer keeps the full-text index of publicly visible blog posts.
type PostIndexer interface {
	Enabled() bool
	// IndexPost adds or refreshes a post. Posts that are not published and
	// public are removed from the index instead.
	IndexPost(post *entity.BlogPost) error
	DeletePost(id uint) error
	// SearchPostIDs returns matching post ids in relevance order.
	SearchPostIDs(query string, offset, limit int) ([]uint, int64, error)
}

type meiliSearchService struct {
	client    meilisearch.ServiceManager
	sanitizer sanitizer.Sanitizer
}

// NewMeiliSearchService returns an indexer backed by client. A nil client
// yields a disabled indexer whose calls are no-ops.
func NewMeiliSearchService(client meilisearch.ServiceManager, san sanitizer.Sanitizer) PostIndexer {
	s := &meiliSearchService{client: client, sanitizer: san}
	if client != nil {
		s.initIndexes()
	}
	return s
}

func (s *meiliSearchService) initIndexes() {
	filterable := []any{"status", "visibility", "topics", "book_isbn"}
	if _, err := s.client.Index(postsIndex).UpdateFilterableAttributes(&filterable); err != nil {
		log.Warn().Err(err).Msg("failed to update blog_posts filterable attributes")
	}

	sortable := []string{"published_at", "like_count"}
	if _, err := s.client.Index(postsIndex).UpdateSortableAttributes(&sortable); err != nil {
		log.Warn().Err(err).Msg("failed to update blog_posts sortable attributes")
	}

	log.Info().Msg("meilisearch indexes initialized")
}

type meiliPostDoc struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Slug        string   `json:"slug"`
	Excerpt     string   `json:"excerpt"`
	Content     string   `json:"content"`
	Username    string   `json:"username"`
	BookISBN    string   `json:"book_isbn,omitempty"`
	BookTitle   string   `json:"book_title,omitempty"`
	Topics      []string `json:"topics"`
	Status      string   `json:"status"`
	Visibility  string   `json:"visibility"`
	LikeCount   int64    `json:"like_count"`
	PublishedAt int64    `json:"published_at"`
}

func (s *meiliSearchService) Enabled() bool {
	return s.client != nil
}

func (s *meiliSearchService) IndexPost(post *entity.BlogPost) error {
	if !s.Enabled() {
		return nil
	}
	if post.Status != entity.PostStatusPublished || post.Visibility != entity.VisibilityPublic {
		return s.DeletePost(post.ID)
	}

	doc := meiliPostDoc{
		ID:         strconv.FormatUint(uint64(post.ID), 10),
		Title:      post.Title,
		Slug:       post.Slug,
		Excerpt:    post.Excerpt,
		Content:    s.sanitizer.Text(post.Content),
		Username:   post.Username,
		Topics:     make([]string, 0, len(post.Topics)),
		Status:     post.Status,
		Visibility: post.Visibility,
		LikeCount:  post.LikeCount,
	}
	if post.BookISBN != nil {
		doc.BookISBN = *post.BookISBN
	}
	if post.BookTitle != nil {
		doc.BookTitle = *post.BookTitle
	}
	for _, t := range post.Topics {
		doc.Topics = append(doc.Topics, t.Slug)
	}
	if post.PublishedAt != nil {
		doc.PublishedAt = post.PublishedAt.Unix()
	}

	task, err := s.client.Index(postsIndex).AddDocuments([]meiliPostDoc{doc}, strPtr("id"))
	if err != nil {
		return err
	}
	log.Debug().Uint("post_id", post.ID).Int64("task_uid", task.TaskUID).Msg("indexed blog post")
	return nil
}

func (s *meiliSearchService) DeletePost(id uint) error {
	if !s.Enabled() {
		return nil
	}
	_, err := s.client.Index(postsIndex).DeleteDocument(strconv.FormatUint(uint64(id), 10))
	return err
}

type searchHits struct {
	Hits []struct {
		ID json.RawMessage `json:"id"`
	} `json:"hits"`
	EstimatedTotalHits int64 `json:"estimatedTotalHits"`
	TotalHits          int64 `json:"totalHits"`
}

func (s *meiliSearchService) SearchPostIDs(query string, offset, limit int) ([]uint, int64, error) {
	if !s.Enabled() {
		return nil, 0, fmt.Errorf("search index is not configured")
	}

	raw, err := s.client.Index(postsIndex).SearchRaw(query, &meilisearch.SearchRequest{
		Offset:               int64(offset),
		Limit:                int64(limit),
		Filter:               fmt.Sprintf("status = %s AND visibility = %s", entity.PostStatusPublished, entity.VisibilityPublic),
		AttributesToRetrieve: []string{"id"},
	})
	if err != nil {
		return nil, 0, err
	}

	var res searchHits
	if err := json.Unmarshal(*raw, &res); err != nil {
		return nil, 0, fmt.Errorf("decode search response: %w", err)
	}

	ids := make([]uint, 0, len(res.Hits))
	for _, hit := range res.Hits {
		id, err := parseID(hit.ID)
		if err != nil {
			log.Warn().Err(err).RawJSON("id", hit.ID).Msg("skipping search hit with unexpected id")
			continue
		}
		ids = append(ids, id)
	}

	total := res.EstimatedTotalHits
	if res.TotalHits > total {
		total = res.TotalHits
	}
	return ids, total, nil
}

// parseID accepts the id as a JSON string or number.
func parseID(raw json.RawMessage) (uint, error) {
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		str = string(raw)
	}
	n, err := strconv.ParseUint(str, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(n), nil
}

func strPtr(s string) *string {
	return &s
}
