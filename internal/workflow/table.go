package workflow

import (
	"sort"

	"github.com/deskflow/request-portal/internal/domain"
	apperrors "github.com/deskflow/request-portal/pkg/util/errorutil"
)

// Rule authorizes one edge of a transition table.
type Rule struct {
	Roles []domain.Role
	// LeadOnly restricts the edge to the project's designated lead.
	LeadOnly bool
	// TransferOnly edges are taken by the transfer coordinator, never by Transition.
	TransferOnly bool
}

func (r Rule) permits(actor domain.Actor, leadID string) bool {
	if r.LeadOnly {
		return leadID != "" && actor.ID == leadID
	}
	for _, role := range r.Roles {
		if role == actor.Role {
			return true
		}
	}
	return false
}

// Table is a closed transition table over one state type.
type Table[S ~string] struct {
	name  string
	edges map[S]map[S]Rule
}

func newTable[S ~string](name string, states ...S) *Table[S] {
	t := &Table[S]{name: name, edges: make(map[S]map[S]Rule, len(states))}
	for _, s := range states {
		t.edges[s] = map[S]Rule{}
	}
	return t
}

func (t *Table[S]) edge(from, to S, rule Rule) *Table[S] {
	if _, ok := t.edges[from]; !ok {
		panic("workflow: edge from undeclared state " + string(from))
	}
	if _, ok := t.edges[to]; !ok {
		panic("workflow: edge to undeclared state " + string(to))
	}
	t.edges[from][to] = rule
	return t
}

// Name identifies the table in errors.
func (t *Table[S]) Name() string {
	return t.name
}

// Has reports whether s is a state of this table.
func (t *Table[S]) Has(s S) bool {
	_, ok := t.edges[s]
	return ok
}

// Rule returns the rule for from -> to, if the edge exists.
func (t *Table[S]) Rule(from, to S) (Rule, bool) {
	out, ok := t.edges[from]
	if !ok {
		return Rule{}, false
	}
	rule, ok := out[to]
	return rule, ok
}

// Terminal reports whether s has no outgoing edges.
func (t *Table[S]) Terminal(s S) bool {
	return len(t.edges[s]) == 0
}

// check resolves (from, to, actor) to nil, ILLEGAL_TRANSITION or UNAUTHORIZED_TRANSITION.
func (t *Table[S]) check(from, to S, actor domain.Actor, leadID string, viaTransfer bool) error {
	details := map[string]any{"workflow": t.name, "from": string(from), "to": string(to)}
	rule, ok := t.Rule(from, to)
	if !ok {
		return apperrors.ErrIllegalTransition.WithDetails(details)
	}
	if rule.TransferOnly != viaTransfer {
		if rule.TransferOnly {
			return apperrors.ErrIllegalTransition.WithMessage("transfer edges are taken by the transfer operation").WithDetails(details)
		}
		return apperrors.ErrIllegalTransition.WithDetails(details)
	}
	if !rule.permits(actor, leadID) {
		details["role"] = string(actor.Role)
		return apperrors.ErrUnauthorizedTransition.WithDetails(details)
	}
	return nil
}

// targets lists the states actor may move to from s through Transition, sorted.
func (t *Table[S]) targets(from S, actor domain.Actor, leadID string) []S {
	var out []S
	for to, rule := range t.edges[from] {
		if rule.TransferOnly || !rule.permits(actor, leadID) {
			continue
		}
		out = append(out, to)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
