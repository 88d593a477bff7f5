// Package reminder implements the periodic due-date reminder sweep: a batch
// consumer of the same user state the subscription engine maintains.
package reminder

import (
	"context"
	"strconv"
	"time"

	"github.com/taskbridge/taskbridge/internal/asana"
	"github.com/taskbridge/taskbridge/internal/auth"
	"github.com/taskbridge/taskbridge/internal/cards"
	"github.com/taskbridge/taskbridge/internal/chat"
	"github.com/taskbridge/taskbridge/internal/db/models"
	"github.com/taskbridge/taskbridge/internal/notification"
	"github.com/taskbridge/taskbridge/internal/store"
	"go.uber.org/zap"
)

// reminders fire at 8am in the user's local timezone
const triggerHour = 8

// Sweep periodically scans reminder-enabled users and delivers a due-task
// digest.
type Sweep struct {
	store    *store.Store
	guard    *auth.Guard
	client   *asana.Client
	chat     *chat.Client
	interval time.Duration
	log      *zap.Logger
	now      func() time.Time
}

// New creates a Sweep that wakes up on the given interval.
func New(st *store.Store, guard *auth.Guard, client *asana.Client, chatClient *chat.Client, interval time.Duration, log *zap.Logger) *Sweep {
	return &Sweep{
		store:    st,
		guard:    guard,
		client:   client,
		chat:     chatClient,
		interval: interval,
		log:      log,
		now:      time.Now,
	}
}

// Run starts the loop until ctx is canceled.
func (s *Sweep) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("reminder sweep stopping")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweep) tick(ctx context.Context) {
	utcNow := s.now().UTC()

	users, err := s.store.ListUsersWithReminders()
	if err != nil {
		s.log.Error("reminder user listing failed", zap.Error(err))
		return
	}

	for i := range users {
		user := &users[i]
		localHour := utcNow.Hour() + user.TimezoneOffset
		if localHour != triggerHour && localHour != triggerHour+24 {
			continue
		}
		if err := s.remind(ctx, user, utcNow, localHour); err != nil {
			s.log.Error("reminder failed", zap.String("user", user.ID), zap.Error(err))
		}
	}
}

func (s *Sweep) remind(ctx context.Context, user *models.User, utcNow time.Time, localHour int) error {
	if user.ReminderOff() {
		return nil
	}
	if err := s.guard.EnsureFresh(ctx, user); err != nil {
		return err
	}

	interval, err := strconv.Atoi(user.ReminderInterval)
	if err != nil || interval <= 0 {
		return nil
	}

	refs, err := s.client.TasksInUserTaskList(ctx, user.AccessToken, user.UserTaskListGID)
	if err != nil {
		return err
	}

	var due []notification.TaskNotification
	for _, ref := range refs {
		task, err := s.client.Task(ctx, user.AccessToken, ref.GID)
		if err != nil {
			return err
		}
		if task.DueOn == "" {
			continue
		}
		dueOn, err := time.Parse("2006-01-02", task.DueOn)
		if err != nil {
			continue
		}
		trigger := ReduceBusinessDays(dueOn, interval).Add(time.Duration(localHour-user.TimezoneOffset) * time.Hour)
		if !trigger.Truncate(time.Hour).Equal(utcNow.Truncate(time.Hour)) {
			continue
		}
		due = append(due, notification.TaskNotification{
			TaskName:     task.Name,
			Description:  notification.TruncateDescription(task.Notes),
			ProjectNames: joinProjects(task.Projects),
			DueDate:      task.DueOn,
			Link:         task.PermalinkURL,
		})
	}
	if len(due) == 0 {
		return nil
	}

	bot, err := s.store.GetBot(user.BotID)
	if err != nil {
		return err
	}
	return s.chat.SendCard(ctx, bot.AccessToken, user.DMGroupID, cards.TaskDueReminderCard(user.ReminderInterval, due))
}

// ReduceBusinessDays steps back the given number of weekdays, skipping
// Saturdays and Sundays.
func ReduceBusinessDays(from time.Time, days int) time.Time {
	result := from
	remaining := days
	for remaining > 0 {
		result = result.AddDate(0, 0, -1)
		if result.Weekday() != time.Saturday && result.Weekday() != time.Sunday {
			remaining--
		}
	}
	return result
}

func joinProjects(projects []asana.Project) string {
	names := ""
	for i, p := range projects {
		if i > 0 {
			names += ","
		}
		names += p.Name
	}
	return names
}
