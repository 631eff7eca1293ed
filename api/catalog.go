package api

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

// AuthorClient talks to the author endpoints
type AuthorClient struct {
	resource[Author]
}

var _ AuthorAPI = (*AuthorClient)(nil)

// NewAuthorClient creates an AuthorClient on top of c
func NewAuthorClient(c *Client) *AuthorClient {
	return &AuthorClient{resource: newResource[Author](c, "/authors", "author", "authors")}
}

// Search finds authors whose name contains name
func (a *AuthorClient) Search(ctx context.Context, name string) ([]Author, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name", "must not be blank")
	}
	return a.listBy(ctx, call{
		path:     a.path + "/search",
		query:    url.Values{"name": {name}},
		fallback: "Could not search authors.",
	})
}

// BookClient talks to the book endpoints
type BookClient struct {
	resource[Book]
}

var _ BookAPI = (*BookClient)(nil)

// NewBookClient creates a BookClient on top of c
func NewBookClient(c *Client) *BookClient {
	r := newResource[Book](c, "/books", "book", "books")
	r.body = func(b *Book) (any, error) {
		out := *b
		out.Authors = authorRefs(b.Authors)
		return out, nil
	}
	return &BookClient{resource: r}
}

// Search filters books by the non-empty query fields. An empty query lists everything.
func (b *BookClient) Search(ctx context.Context, query BookQuery) ([]Book, error) {
	params := url.Values{}
	if v := strings.TrimSpace(query.Title); v != "" {
		params.Set("title", v)
	}
	if v := strings.TrimSpace(query.ISBN); v != "" {
		params.Set("isbn", v)
	}
	if v := strings.TrimSpace(query.Author); v != "" {
		params.Set("author", v)
	}
	if len(params) == 0 {
		return b.List(ctx)
	}
	return b.listBy(ctx, call{
		path:     b.path + "/search",
		query:    params,
		fallback: "Could not search books.",
	})
}

// CopyClient talks to the copy endpoints
type CopyClient struct {
	resource[Copy]
}

var _ CopyAPI = (*CopyClient)(nil)

// NewCopyClient creates a CopyClient on top of c
func NewCopyClient(c *Client) *CopyClient {
	r := newResource[Copy](c, "/copies", "copy", "copies")
	r.body = func(cp *Copy) (any, error) {
		if err := ValidateCopy(cp); err != nil {
			return nil, err
		}
		out := *cp
		out.Book = &Book{ID: ID(cp.Book.GetID())}
		return out, nil
	}
	return &CopyClient{resource: r}
}

// ByBook lists the copies of one book
func (c *CopyClient) ByBook(ctx context.Context, bookID int64) ([]Copy, error) {
	if err := requireID("book id", bookID); err != nil {
		return nil, err
	}
	return c.listBy(ctx, call{
		path:     c.path + "/find-by-book/" + strconv.FormatInt(bookID, 10),
		fallback: "Could not list copies of the book.",
	})
}

// authorRefs keeps only the identifiers of already stored authors
func authorRefs(authors []Author) []Author {
	if authors == nil {
		return nil
	}
	refs := make([]Author, 0, len(authors))
	for _, a := range authors {
		if a.GetID() > 0 {
			refs = append(refs, Author{ID: ID(a.GetID())})
			continue
		}
		refs = append(refs, a)
	}
	return refs
}
