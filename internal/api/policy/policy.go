// Package policy is the single decision point for who may do what.
//
// Every mutation handler asks Authorize before touching the store. The rules
// are flat predicate compositions rather than a permission-class hierarchy,
// and the default answer is deny.
package policy

import (
	"errors"

	"reviewhub/internal/api/models"
)

// The two denial modes are distinct so the surface can answer 401 vs 403.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("insufficient permissions")
)

type Action int

const (
	ActionRead Action = iota
	ActionCreate
	ActionUpdate
	ActionDelete
)

type Kind int

const (
	// KindCatalog covers categories, genres and titles: open reads,
	// admin-only writes.
	KindCatalog Kind = iota
	// KindReview and KindComment carry ownership.
	KindReview
	KindComment
	// KindUserAccount is a profile; OwnerID is the profile's own user id.
	KindUserAccount
)

// Resource is the minimal authorization view of a stored object. OwnerID is
// empty when ownership has no meaning for the kind.
type Resource struct {
	Kind    Kind
	OwnerID string
}

func ReviewOf(r *models.Review) Resource {
	return Resource{Kind: KindReview, OwnerID: r.AuthorID}
}

func CommentOf(c *models.Comment) Resource {
	return Resource{Kind: KindComment, OwnerID: c.AuthorID}
}

func AccountOf(u *models.User) Resource {
	return Resource{Kind: KindUserAccount, OwnerID: u.ID}
}

func Catalog() Resource {
	return Resource{Kind: KindCatalog}
}

// Authorize decides whether actor may perform action on res. A nil actor is
// an anonymous request. Returns nil on allow, ErrUnauthenticated when a
// credential would change the answer, ErrForbidden otherwise.
func Authorize(actor *models.User, action Action, res Resource) error {
	switch res.Kind {
	case KindCatalog:
		if action == ActionRead {
			return nil
		}
		return requireAdmin(actor)

	case KindReview, KindComment:
		switch action {
		case ActionRead:
			return nil
		case ActionCreate:
			return requireAuthenticated(actor)
		case ActionUpdate, ActionDelete:
			if err := requireAuthenticated(actor); err != nil {
				return err
			}
			if owns(actor, res) || actor.IsModerator() || actor.IsAdmin() {
				return nil
			}
			return ErrForbidden
		}

	case KindUserAccount:
		switch action {
		case ActionRead, ActionUpdate:
			if err := requireAuthenticated(actor); err != nil {
				return err
			}
			if owns(actor, res) || actor.IsAdmin() {
				return nil
			}
			return ErrForbidden
		case ActionCreate, ActionDelete:
			return requireAdmin(actor)
		}
	}

	// Unknown kind or action: fail closed.
	if actor == nil {
		return ErrUnauthenticated
	}
	return ErrForbidden
}

func requireAuthenticated(actor *models.User) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	return nil
}

func requireAdmin(actor *models.User) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func owns(actor *models.User, res Resource) bool {
	return actor != nil && res.OwnerID != "" && actor.ID == res.OwnerID
}
