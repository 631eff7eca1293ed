package api

import (
	"context"
	"net/http"
	"strconv"
)

// LoanClient talks to the loan endpoints
type LoanClient struct {
	resource[Loan]
}

var _ LoanAPI = (*LoanClient)(nil)

// NewLoanClient creates a LoanClient on top of c
func NewLoanClient(c *Client) *LoanClient {
	r := newResource[Loan](c, "/loans", "loan", "loans")
	r.body = loanBody
	return &LoanClient{resource: r}
}

// loanBody sends the user and copy as bare references. Their full records
// must not be re-serialized.
func loanBody(l *Loan) (any, error) {
	if err := ValidateLoan(l); err != nil {
		return nil, err
	}

	body := map[string]any{
		"user": map[string]any{"id": l.User.GetID()},
		"copy": map[string]any{"id": l.Copy.GetID()},
	}
	if l.LoanDate != nil && !l.LoanDate.IsZero() {
		body["loanDate"] = l.LoanDate
	}
	if l.DueDate != nil && !l.DueDate.IsZero() {
		body["dueDate"] = l.DueDate
	}
	if l.ReturnDate != nil && !l.ReturnDate.IsZero() {
		body["returnDate"] = l.ReturnDate
	}
	return body, nil
}

// ByUser lists the loans of one user
func (l *LoanClient) ByUser(ctx context.Context, userID int64) ([]Loan, error) {
	if err := requireID("user id", userID); err != nil {
		return nil, err
	}
	return l.listBy(ctx, call{
		path:     l.path + "/find-by-user/" + strconv.FormatInt(userID, 10),
		fallback: "Could not list loans of the user.",
	})
}

// Return closes the loan and returns its updated record
func (l *LoanClient) Return(ctx context.Context, id int64) (*Loan, error) {
	if err := requireID("loan id", id); err != nil {
		return nil, err
	}

	var out Loan
	err := l.client.do(ctx, call{
		method:   http.MethodPut,
		path:     l.byID("return-by-id", id),
		auth:     true,
		fallback: "Could not return the loan.",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
