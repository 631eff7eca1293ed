package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0up4200/librarian/api"
	"github.com/s0up4200/librarian/filter"
)

var (
	filterExpr string

	searchTitle  string
	searchISBN   string
	searchAuthor string

	loanUser int64
	loanCopy int64
	loanDue  string
)

// listing describes how one resource is listed and printed
type listing[T any] struct {
	noun, plural string
	list         func(context.Context) ([]T, error)
	header       []any
	format       string
	row          func(T) []any
}

func init() {
	books := resourceCommand("books", "Browse and search the catalogue")
	books.AddCommand(listCommand(bookListing(nil)), bookSearchCmd)

	loans := resourceCommand("loans", "Lend and return copies")
	loans.AddCommand(listCommand(loanListing(nil)), loanCreateCmd, loanReturnCmd)

	authors := resourceCommand("authors", "Browse authors")
	authors.AddCommand(listCommand(listing[api.Author]{
		noun: "author", plural: "authors",
		list:   func(ctx context.Context) ([]api.Author, error) { return svc.Authors().List(ctx) },
		format: "%-5s %-40s %-12s %s\n",
		header: []any{"ID", "NAME", "NATIONALITY", "BORN"},
		row: func(a api.Author) []any {
			return []any{strconv.FormatInt(a.GetID(), 10), truncate(a.FullName(), 40), orDash(a.Nationality), dateOrDash(a.BirthDate)}
		},
	}))

	copies := resourceCommand("copies", "Browse physical copies")
	copies.AddCommand(listCommand(listing[api.Copy]{
		noun: "copy", plural: "copies",
		list:   func(ctx context.Context) ([]api.Copy, error) { return svc.Copies().List(ctx) },
		format: "%-5s %-10s %-10s %-40s %s\n",
		header: []any{"ID", "CODE", "STATUS", "BOOK", "LOCATION"},
		row: func(c api.Copy) []any {
			title := "-"
			if c.Book != nil {
				title = c.Book.Title
			}
			return []any{strconv.FormatInt(c.GetID(), 10), orDash(c.Code), string(c.Status), truncate(title, 40), orDash(c.Location)}
		},
	}))

	users := resourceCommand("users", "Manage users")
	users.AddCommand(listCommand(listing[api.User]{
		noun: "user", plural: "users",
		list:   func(ctx context.Context) ([]api.User, error) { return svc.Users().List(ctx) },
		format: "%-5s %-20s %-35s %s\n",
		header: []any{"ID", "IDENTIFIER", "NAME", "ROLE"},
		row: func(u api.User) []any {
			return []any{strconv.FormatInt(u.GetID(), 10), orDash(u.Identifier), truncate(orDash(u.FullName()), 35), roleName(u.Role)}
		},
	}))

	groups := resourceCommand("groups", "Manage groups")
	groups.AddCommand(listCommand(listing[api.Group]{
		noun: "group", plural: "groups",
		list:   func(ctx context.Context) ([]api.Group, error) { return svc.Groups().List(ctx) },
		format: "%-5s %-30s %s\n",
		header: []any{"ID", "NAME", "MEMBERS"},
		row: func(g api.Group) []any {
			return []any{strconv.FormatInt(g.GetID(), 10), truncate(g.Name, 30), strconv.Itoa(len(g.Members))}
		},
	}))

	schedules := resourceCommand("schedules", "Browse group schedules")
	schedules.AddCommand(listCommand(listing[api.Schedule]{
		noun: "schedule", plural: "schedules",
		list:   func(ctx context.Context) ([]api.Schedule, error) { return svc.Schedules().List(ctx) },
		format: "%-5s %-25s %-10s %-13s %s\n",
		header: []any{"ID", "GROUP", "DAY", "TIME", "LOCATION"},
		row: func(s api.Schedule) []any {
			group := "-"
			if s.Group != nil {
				group = s.Group.Name
			}
			return []any{strconv.FormatInt(s.GetID(), 10), truncate(group, 25), orDash(s.Weekday), s.StartsAt + "-" + s.EndsAt, orDash(s.Location)}
		},
	}))

	rootCmd.AddCommand(books, loans, authors, copies, users, groups, schedules)

	bookSearchCmd.Flags().StringVar(&searchTitle, "title", "", "title contains")
	bookSearchCmd.Flags().StringVar(&searchISBN, "isbn", "", "exact ISBN")
	bookSearchCmd.Flags().StringVar(&searchAuthor, "author", "", "author name contains")

	loanCreateCmd.Flags().Int64Var(&loanUser, "user", 0, "user id (required)")
	loanCreateCmd.Flags().Int64Var(&loanCopy, "copy", 0, "copy id (required)")
	loanCreateCmd.Flags().StringVar(&loanDue, "due", "", "due date YYYY-MM-DD (default: backend decides)")
	_ = loanCreateCmd.MarkFlagRequired("user")
	_ = loanCreateCmd.MarkFlagRequired("copy")
}

func resourceCommand(use, short string) *cobra.Command {
	return &cobra.Command{Use: use, Short: short}
}

// listCommand builds "<resource> list [--filter]"
func listCommand[T any](l listing[T]) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %s", l.plural),
		Long: fmt.Sprintf(`List %s, optionally narrowed by a filter.

The filter is either the name of a filter from the config file or an
expression over the JSON fields of a %s, for example:

  librarian books list --filter 'has(title, "quijote")'
  librarian loans list --filter 'returnDate == nil and daysSince(dueDate) > 0'`, l.plural, l.noun),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), l)
		},
	}
	cmd.Flags().StringVarP(&filterExpr, "filter", "f", "", "filter name or expression")
	return cmd
}

func runList[T any](ctx context.Context, l listing[T]) error {
	var f *filter.Filter
	if filterExpr != "" {
		var err error
		if f, err = filters.Resolve(filterExpr); err != nil {
			return fmt.Errorf("invalid filter expression: %w", err)
		}
	}

	if err := authenticate(ctx); err != nil {
		return err
	}

	items, err := await(ctx, l.list)
	if err != nil {
		return err
	}
	if f != nil {
		logger.Debug().Str("filter", f.Expression()).Int("total", len(items)).Msg("Applying filter")
		items = filter.Apply(f, items)
	}

	printListing(l, items)
	return nil
}

func printListing[T any](l listing[T], items []T) {
	if len(items) == 0 {
		fmt.Printf("No %s found.\n", l.plural)
		return
	}

	fmt.Printf("Found %d %s:\n\n", len(items), plural(len(items), l.noun, l.plural))
	printHeader(strings.TrimSuffix(l.format, "\n"), l.header...)
	for _, item := range items {
		fmt.Printf(l.format, l.row(item)...)
	}
}

func bookListing(list func(context.Context) ([]api.Book, error)) listing[api.Book] {
	if list == nil {
		list = func(ctx context.Context) ([]api.Book, error) { return svc.Books().List(ctx) }
	}
	return listing[api.Book]{
		noun: "book", plural: "books",
		list:   list,
		format: "%-5s %-40s %-20s %s\n",
		header: []any{"ID", "TITLE", "ISBN", "AUTHORS"},
		row: func(b api.Book) []any {
			names := make([]string, 0, len(b.Authors))
			for _, a := range b.Authors {
				names = append(names, a.FullName())
			}
			return []any{strconv.FormatInt(b.GetID(), 10), truncate(b.Title, 40), orDash(b.ISBN), orDash(strings.Join(names, ", "))}
		},
	}
}

func loanListing(list func(context.Context) ([]api.Loan, error)) listing[api.Loan] {
	if list == nil {
		list = func(ctx context.Context) ([]api.Loan, error) { return svc.Loans().List(ctx) }
	}
	return listing[api.Loan]{
		noun: "loan", plural: "loans",
		list:   list,
		format: "%-5s %-20s %-10s %-10s %-10s %s\n",
		header: []any{"ID", "USER", "COPY", "LOANED", "DUE", "RETURNED"},
		row: func(l api.Loan) []any {
			user, code := "-", "-"
			if l.User != nil {
				user = orDash(l.User.Identifier)
			}
			if l.Copy != nil {
				code = orDash(l.Copy.Code)
			}
			return []any{strconv.FormatInt(l.GetID(), 10), truncate(user, 20), code, dateOrDash(l.LoanDate), dateOrDash(l.DueDate), dateOrDash(l.ReturnDate)}
		},
	}
}

var bookSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search books by title, ISBN or author",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		query := api.BookQuery{Title: searchTitle, ISBN: searchISBN, Author: searchAuthor}
		return runList(cmd.Context(), bookListing(func(ctx context.Context) ([]api.Book, error) {
			return svc.Books().Search(ctx, query)
		}))
	},
}

var loanCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Lend a copy to a user",
	Args:  cobra.NoArgs,
	RunE:  runLoanCreate,
}

func runLoanCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	loan := &api.Loan{
		User: &api.User{ID: api.ID(loanUser)},
		Copy: &api.Copy{ID: api.ID(loanCopy)},
	}
	if loanDue != "" {
		due, err := api.ParseDate(loanDue)
		if err != nil {
			return err
		}
		loan.DueDate = &due
	}
	// Reject bad references before logging in
	if err := api.ValidateLoan(loan); err != nil {
		return err
	}

	if err := authenticate(ctx); err != nil {
		return err
	}

	created, err := await(ctx, func(ctx context.Context) (*api.Loan, error) {
		return svc.Loans().Create(ctx, loan)
	})
	if err != nil {
		return err
	}

	logger.Info().Int64("loan_id", created.GetID()).Int64("copy_id", loanCopy).Msg("Loan created")
	fmt.Printf("✓ Loan %d created, due %s\n", created.GetID(), dateOrDash(created.DueDate))
	return nil
}

var loanReturnCmd = &cobra.Command{
	Use:   "return <loan-id>",
	Short: "Return a loaned copy",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoanReturn,
}

func runLoanReturn(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid loan id %q", args[0])
	}
	if err := authenticate(ctx); err != nil {
		return err
	}

	returned, err := await(ctx, func(ctx context.Context) (*api.Loan, error) {
		return svc.Loans().Return(ctx, id)
	})
	if err != nil {
		return err
	}

	fmt.Printf("✓ Loan %d returned on %s\n", returned.GetID(), dateOrDash(returned.ReturnDate))
	return nil
}
