package services

import (
	"context"
	"errors"

	"github.com/yukikurage/review-portal/internal/models"
	"github.com/yukikurage/review-portal/internal/repository"
	"github.com/yukikurage/review-portal/internal/visibility"
)

// snapshotParts selects which collections a view needs besides users.
type snapshotParts uint8

const (
	withTasks snapshotParts = 1 << iota
	withFiles
)

// resolveView loads the requested collections and filters them for actor.
// Users are always loaded since every rule depends on owner roles.
func resolveView(ctx context.Context, gw *repository.Gateway, actor *models.User, parts snapshotParts) (visibility.View, error) {
	var snap visibility.Snapshot

	users, err := gw.Users.List(ctx)
	if err != nil {
		return visibility.View{}, fromRepository(err)
	}
	snap.Users = users

	if parts&withTasks != 0 {
		tasks, err := gw.Tasks.List(ctx)
		if err != nil {
			return visibility.View{}, fromRepository(err)
		}
		snap.Tasks = tasks
	}
	if parts&withFiles != 0 {
		files, err := gw.Files.List(ctx)
		if err != nil {
			return visibility.View{}, fromRepository(err)
		}
		snap.Files = files
	}

	return visibility.Resolve(snap, visibility.ActorFor(actor)), nil
}

// findOwner loads the owner of a task or file. A missing owner is not an
// error: the entity may outlive a rejected account.
func findOwner(ctx context.Context, users repository.UserRepository, id string) (*models.User, error) {
	owner, err := users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fromRepository(err)
	}
	return owner, nil
}
