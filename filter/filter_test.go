package filter

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/librarian/api"
)

var testNow = time.Date(2026, time.March, 20, 12, 0, 0, 0, time.UTC)

func testCompiler() *Compiler {
	return NewCompiler(WithCache(8), WithClock(func() time.Time { return testNow }))
}

func date(s string) *api.Date {
	d, err := api.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return &d
}

func TestCompileFilter(t *testing.T) {
	tests := []struct {
		name        string
		expression  string
		wantErr     bool
		errContains string
	}{
		{name: "valid expression", expression: `status == "AVAILABLE"`},
		{name: "empty expression", expression: "   ", wantErr: true, errContains: "empty expression"},
		{name: "invalid syntax", expression: `has(title, "unclosed`, wantErr: true},
		{name: "not boolean", expression: `1 + 2`, wantErr: true},
		{name: "helpers", expression: `has(title, "war") and daysSince(publicationDate) > 365`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := testCompiler().Compile(tt.expression)
			if tt.wantErr {
				require.Error(t, err)
				var compErr *CompilationError
				assert.True(t, errors.As(err, &compErr))
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expression, f.Expression())
		})
	}
}

func TestFilterEvaluation(t *testing.T) {
	book := api.Book{
		ID:              api.ID(3),
		Title:           "Fortunata y Jacinta",
		ISBN:            "978-84-206-0000-1",
		PublicationDate: date("1887-01-01"),
		Authors:         []api.Author{{GivenName: "Benito", FamilyName1: "Pérez", FamilyName2: "Galdós"}},
	}
	loan := api.Loan{
		ID:      api.ID(9),
		DueDate: date("2026-03-10"),
		Copy:    &api.Copy{ID: api.ID(4), Status: api.CopyLoaned},
	}

	tests := []struct {
		name       string
		expression string
		item       any
		expected   bool
	}{
		{name: "title contains", expression: `has(title, "fortunata")`, item: book, expected: true},
		{name: "title starts with", expression: `beginsWith(title, "jacinta")`, item: book, expected: false},
		{name: "title ends with", expression: `endsIn(title, "JACINTA")`, item: book, expected: true},
		{name: "contains operator", expression: `lower(title) contains "fortunata"`, item: book, expected: true},
		{name: "startsWith operator", expression: `title startsWith "Fortunata"`, item: book, expected: true},
		{name: "id comparison", expression: `id == 3`, item: book, expected: true},
		{name: "nested author", expression: `any(authors, {has(.familyName2, "galdós")})`, item: book, expected: true},
		{name: "old book", expression: `daysSince(publicationDate) > 365 * 100`, item: book, expected: true},
		{name: "overdue loan", expression: `returnDate == nil and daysSince(dueDate) > 0`, item: loan, expected: true},
		{name: "nested status", expression: `copy.status == "LOANED"`, item: &loan, expected: true},
		{name: "before helper", expression: `before(dueDate, daysAgo(5))`, item: loan, expected: true},
		{name: "after helper", expression: `after(dueDate, parseDate("2026-03-15"))`, item: loan, expected: false},
		{name: "missing field", expression: `nationality == "ES"`, item: book, expected: false},
		{name: "plain value", expression: `lower(value) == "x"`, item: "X", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := testCompiler().Compile(tt.expression)
			require.NoError(t, err)

			got, err := f.Match(tt.item)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestEvaluationError(t *testing.T) {
	f, err := testCompiler().Compile(`upper(nationality) == "ES"`)
	require.NoError(t, err)

	_, err = f.Match(api.Book{Title: "no nationality field"})
	require.Error(t, err)
	var evalErr *EvaluationError
	assert.True(t, errors.As(err, &evalErr))
}

func TestApply(t *testing.T) {
	copies := []api.Copy{
		{ID: api.ID(1), Code: "A", Status: api.CopyAvailable},
		{ID: api.ID(2), Code: "B", Status: api.CopyLoaned},
		{ID: api.ID(3), Code: "C", Status: api.CopyAvailable},
		{ID: api.ID(4), Status: api.CopyAvailable},
	}

	f, err := testCompiler().Compile(`status == "AVAILABLE" and lower(code) != "c"`)
	require.NoError(t, err)

	got := Apply(f, copies)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Code)
}

func TestCustomFunctions(t *testing.T) {
	c := NewCompiler(WithCustomFunctions(map[string]any{
		"isClassic": func(title string) bool { return title == "Don Quijote" },
	}))

	f, err := c.Compile(`isClassic(title) and has(title, "quijote")`)
	require.NoError(t, err)
	ok, err := f.Match(api.Book{Title: "Don Quijote"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCompilerCache(t *testing.T) {
	c := NewCompiler(WithCache(2))

	first, err := c.Compile(`id > 1`)
	require.NoError(t, err)
	again, err := c.Compile(` id > 1 `)
	require.NoError(t, err)
	assert.Same(t, first, again)

	for i := range 3 {
		_, err := c.Compile(fmt.Sprintf("id > %d", i+10))
		require.NoError(t, err)
	}
	assert.Equal(t, 2, c.Size())

	evicted, err := c.Compile(`id > 1`)
	require.NoError(t, err)
	assert.NotSame(t, first, evicted)

	c.Clear()
	assert.Zero(t, c.Size())
	assert.Zero(t, NewCompiler().Size())
}

func TestLRUCache(t *testing.T) {
	cache := newLRUCache[int](2)
	cache.Put("a", 1)
	cache.Put("b", 2)

	_, _ = cache.Get("a")
	cache.Put("c", 3)

	_, ok := cache.Get("b")
	assert.False(t, ok, "least recently used entry should be evicted")
	v, ok := cache.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	cache.Put("a", 10)
	v, _ = cache.Get("a")
	assert.Equal(t, 10, v)
	assert.Equal(t, 2, cache.Len())
}

func TestManager(t *testing.T) {
	m := NewManager(WithCompiler(testCompiler()))

	err := m.RegisterFilters(map[string]string{
		"available": `status == "AVAILABLE"`,
		"broken":    `status ==`,
	})
	require.Error(t, err)
	assert.Empty(t, m.Names(), "nothing is registered when one filter fails")

	require.NoError(t, m.RegisterFilters(map[string]string{
		"available": `status == "AVAILABLE"`,
		"damaged":   `status == "DAMAGED"`,
	}))
	assert.Equal(t, []string{"available", "damaged"}, m.Names())

	named, err := m.Resolve("available")
	require.NoError(t, err)
	assert.Equal(t, `status == "AVAILABLE"`, named.Expression())

	adhoc, err := m.Resolve(`code == "X"`)
	require.NoError(t, err)
	assert.Equal(t, `code == "X"`, adhoc.Expression())

	_, ok := m.Get("missing")
	assert.False(t, ok)
}
