package scheduler

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/mealdesk/mealdesk/internal/mealapi"
)

// KeepWarmJobID is the id of the job that keeps the remote API awake.
const KeepWarmJobID = "keep_warm"

// Pinger checks whether the remote API answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// UsersRefresher reloads the cached user list.
type UsersRefresher interface {
	RefreshUsers(ctx context.Context) ([]mealapi.User, error)
}

// KeepWarm returns a job that pings the remote API and refreshes the users cache.
func KeepWarm(api Pinger, users UsersRefresher) JobFunc {
	return func(ctx context.Context) error {
		if err := api.Ping(ctx); err != nil {
			return fmt.Errorf("failed to ping meal api: %w", err)
		}
		if users == nil {
			return nil
		}
		list, err := users.RefreshUsers(ctx)
		if err != nil {
			return fmt.Errorf("failed to refresh users: %w", err)
		}
		log.Debug("Refreshed users cache", "users", len(list))
		return nil
	}
}
