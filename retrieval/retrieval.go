// Package retrieval declares the three document lookup functions the agent
// capability may call: sales methodology docs, target-account (pursuit) docs
// and user-company docs. Which one serves a given question is entirely the
// capability's decision.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/salesmesh/core"
	"github.com/hupe1980/salesmesh/internal/util"
)

// Function names as declared to the capability.
const (
	SalesDocsFunction    = "get_sales_docs"
	CustomerDocsFunction = "get_customer_docs"
	UserDocsFunction     = "get_user_docs"
)

// Searcher retrieves document text for a query.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

type queryArgs struct {
	Query string `json:"query" description:"The query from the user."`
}

// Functions builds the three retrieval declarations over the given index
// backends, in the order sales, target account, user company.
func Functions(sales, account, user Searcher) []core.FunctionDecl {
	return []core.FunctionDecl{
		newDecl(
			SalesDocsFunction,
			"Given a user query determine if the users request involves sales strategy or methodology.",
			"sales",
			sales,
		),
		newDecl(
			CustomerDocsFunction,
			"Given a user query determine if the users request involves the target account.",
			"pursuit",
			account,
		),
		newDecl(
			UserDocsFunction,
			"Given a user query determine if the users request involves the company the user represents.",
			"user",
			user,
		),
	}
}

// newDecl wraps a searcher into a FunctionDecl. Lookup failures are rendered
// into the result text, never returned as errors: a single failed lookup must
// not abort the whole answer.
func newDecl(name, description, index string, s Searcher) core.FunctionDecl {
	return core.FunctionDecl{
		Name:        name,
		Description: description,
		Parameters:  util.CreateSchema(queryArgs{}),
		Call: func(ctx context.Context, args map[string]any) (any, error) {
			query, _ := args["query"].(string)
			if strings.TrimSpace(query) == "" {
				return "Input error: the query must be a non-empty string.", nil
			}

			docs, err := s.Search(ctx, query)
			if err != nil {
				return fmt.Sprintf("An error occurred while retrieving documents from the %s index: %v", index, err), nil
			}
			if docs == "" {
				return fmt.Sprintf("No relevant documents found in the %s index.", index), nil
			}
			return docs, nil
		},
	}
}
