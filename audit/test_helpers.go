package audit

import "github.com/stretchr/testify/mock"

// MatchEntry creates a custom matcher for audit entry arguments in mocks
func MatchEntry(matcher func(Entry) bool) interface{} {
	return mock.MatchedBy(matcher)
}
