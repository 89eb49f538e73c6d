// Package visibility decides which users, tasks and files an actor may observe.
//
// Resolve is a pure function of a snapshot and an actor: it never mutates its
// input, and its output depends only on the set of entities, not on the order
// they were loaded in. Results are sorted by creation time, then id.
package visibility

import (
	"slices"
	"strings"

	"github.com/yukikurage/review-portal/internal/models"
)

// Snapshot is the full set of entities visible to the system at one point.
type Snapshot struct {
	Users []models.User
	Tasks []models.Task
	Files []models.File
}

// Actor identifies who is looking.
type Actor struct {
	ID   string
	Role models.Role
}

// ActorFor builds an Actor from a user record.
func ActorFor(u *models.User) Actor {
	return Actor{ID: u.ID, Role: u.Role}
}

// View is everything an actor may observe in a snapshot.
type View struct {
	Users []models.User
	Tasks []models.Task
	Files []models.File

	// TaskReviewQueue and FileReviewQueue hold the pending submissions the
	// actor is expected to review. Empty for plain users.
	TaskReviewQueue []models.Task
	FileReviewQueue []models.File

	// PendingManagers is the manager-approval queue. Admin only.
	PendingManagers []models.User

	// Assignable lists the accounts a task may be assigned to.
	Assignable []models.User
}

// Resolve computes the view of snap for actor.
func Resolve(snap Snapshot, actor Actor) View {
	roles := make(map[string]models.Role, len(snap.Users))
	for _, u := range snap.Users {
		roles[u.ID] = u.Role
	}

	var view View
	switch actor.Role {
	case models.RoleAdmin:
		view = resolveAdmin(snap, roles)
	case models.RoleManager:
		view = resolveManager(snap, actor, roles)
	case models.RoleUser:
		view = resolveUser(snap, actor)
	default:
		// Unknown roles see nothing.
		return View{}
	}

	view.Assignable = filter(snap.Users, func(u models.User) bool {
		return u.Role == models.RoleUser && u.IsApproved
	})

	sortUsers(view.Users)
	sortUsers(view.PendingManagers)
	sortUsers(view.Assignable)
	sortTasks(view.Tasks)
	sortTasks(view.TaskReviewQueue)
	sortFiles(view.Files)
	sortFiles(view.FileReviewQueue)
	return view
}

func resolveAdmin(snap Snapshot, roles map[string]models.Role) View {
	reviewable := func(ownerID string) bool {
		r := roles[ownerID]
		return r == models.RoleUser || r == models.RoleManager
	}
	return View{
		Users: filter(snap.Users, all[models.User]),
		Tasks: filter(snap.Tasks, all[models.Task]),
		Files: filter(snap.Files, all[models.File]),
		TaskReviewQueue: filter(snap.Tasks, func(t models.Task) bool {
			return t.ReviewStatus == models.ReviewStatusPendingReview && reviewable(t.AssignedTo)
		}),
		FileReviewQueue: filter(snap.Files, func(f models.File) bool {
			return f.ReviewStatus == models.ReviewStatusPendingReview && reviewable(f.UploadedBy)
		}),
		PendingManagers: filter(snap.Users, func(u models.User) bool {
			return u.Role == models.RoleManager && !u.IsApproved
		}),
	}
}

func resolveManager(snap Snapshot, actor Actor, roles map[string]models.Role) View {
	ownedByUser := func(ownerID string) bool {
		return roles[ownerID] == models.RoleUser
	}
	tasks := filter(snap.Tasks, func(t models.Task) bool {
		return ownedByUser(t.AssignedTo) || t.AssignedTo == actor.ID
	})
	files := filter(snap.Files, func(f models.File) bool {
		return ownedByUser(f.UploadedBy) || f.UploadedBy == actor.ID
	})
	return View{
		Users: directory(snap.Users, actor),
		Tasks: tasks,
		Files: files,
		TaskReviewQueue: filter(tasks, func(t models.Task) bool {
			return t.ReviewStatus == models.ReviewStatusPendingReview && ownedByUser(t.AssignedTo)
		}),
		FileReviewQueue: filter(files, func(f models.File) bool {
			return f.ReviewStatus == models.ReviewStatusPendingReview && ownedByUser(f.UploadedBy)
		}),
	}
}

func resolveUser(snap Snapshot, actor Actor) View {
	return View{
		Users: directory(snap.Users, actor),
		Tasks: filter(snap.Tasks, func(t models.Task) bool {
			return t.AssignedTo == actor.ID
		}),
		Files: filter(snap.Files, func(f models.File) bool {
			return f.UploadedBy == actor.ID
		}),
	}
}

// directory is the user list shown to non-admins: admin accounts are hidden.
func directory(users []models.User, actor Actor) []models.User {
	return filter(users, func(u models.User) bool {
		return u.Role != models.RoleAdmin || u.ID == actor.ID
	})
}

// CanSeeTask reports whether actor may observe the task. owner is the task's
// assignee and may be nil when that account no longer exists.
func CanSeeTask(actor Actor, task *models.Task, owner *models.User) bool {
	return canSee(actor, task.AssignedTo, owner)
}

// CanSeeFile reports whether actor may observe the file.
func CanSeeFile(actor Actor, file *models.File, owner *models.User) bool {
	return canSee(actor, file.UploadedBy, owner)
}

func canSee(actor Actor, ownerID string, owner *models.User) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleManager:
		return ownerID == actor.ID || (owner != nil && owner.Role == models.RoleUser)
	case models.RoleUser:
		return ownerID == actor.ID
	}
	return false
}

// CanSeeUser reports whether actor may observe the account.
func CanSeeUser(actor Actor, u *models.User) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleManager, models.RoleUser:
		return u.Role != models.RoleAdmin || u.ID == actor.ID
	}
	return false
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

func all[T any](T) bool { return true }

func sortUsers(users []models.User) {
	slices.SortFunc(users, func(a, b models.User) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func sortTasks(tasks []models.Task) {
	slices.SortFunc(tasks, func(a, b models.Task) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func sortFiles(files []models.File) {
	slices.SortFunc(files, func(a, b models.File) int {
		if c := a.UploadedAt.Compare(b.UploadedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
