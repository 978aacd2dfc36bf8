// Package bot runs an optional Telegram bot for the campus admin. It pushes
// new registrations and driver applications to the admin chat and lets the
// admin approve them from inline buttons.
package bot

import (
	"context"
	"fmt"
	"time"

	tele "gopkg.in/telebot.v3"

	"campusride/pkg/logger"
	"campusride/pkg/models"
	"campusride/service"
)

const (
	pendingLimit = 10
	opTimeout    = 5 * time.Second
)

type Options struct {
	Token string
	// ChatID is the Telegram user the bot talks to. Everyone else is ignored.
	ChatID int64
	// ReviewerID is the account recorded as reviewer for driver decisions.
	// Without it driver applications are announced but cannot be decided here.
	ReviewerID int64
	// Offline builds the bot without contacting Telegram.
	Offline bool
}

type Bot struct {
	bot        *tele.Bot
	chatID     int64
	reviewerID int64
	admin      service.AdminService
	log        logger.ILogger
}

func New(opts Options, admin service.AdminService, log logger.ILogger) (*Bot, error) {
	b, err := tele.NewBot(tele.Settings{
		Token:   opts.Token,
		Poller:  &tele.LongPoller{Timeout: 10 * time.Second},
		Offline: opts.Offline,
		OnError: func(err error, c tele.Context) {
			log.Error("telegram handler failed", logger.Error(err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}

	bot := &Bot{
		bot:        b,
		chatID:     opts.ChatID,
		reviewerID: opts.ReviewerID,
		admin:      admin,
		log:        log,
	}
	bot.registerHandlers()
	return bot, nil
}

func (b *Bot) registerHandlers() {
	admins := b.bot.Group()
	admins.Use(b.onlyAdmin)
	admins.Handle("/start", b.handleStart)
	admins.Handle("/pending", b.handlePending)
	admins.Handle("/stats", b.handleStats)
	admins.Handle(tele.OnCallback, b.handleCallback)
}

// Start polls Telegram until Stop is called.
func (b *Bot) Start() {
	b.log.Info("admin bot started", logger.Int64("chat_id", b.chatID))
	b.bot.Start()
}

func (b *Bot) Stop() {
	b.bot.Stop()
}

func (b *Bot) onlyAdmin(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if c.Sender() == nil || c.Sender().ID != b.chatID {
			return nil
		}
		return next(c)
	}
}

func (b *Bot) handleStart(c tele.Context) error {
	return c.Send("🛠 CampusRide admin\n\n/pending - waiting students and drivers\n/stats - totals")
}

func (b *Bot) handleStats(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	stats, err := b.admin.Stats(ctx)
	if err != nil {
		return err
	}
	return c.Send(formatStats(stats))
}

func (b *Bot) handlePending(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	students, err := b.admin.PendingStudents(ctx)
	if err != nil {
		return err
	}
	apps, err := b.admin.PendingDrivers(ctx)
	if err != nil {
		return err
	}
	if len(students) == 0 && len(apps) == 0 {
		return c.Send("📭 Nothing is waiting for review.")
	}

	for i, u := range students {
		if i == pendingLimit {
			break
		}
		if err := c.Send(formatStudent(u), b.studentMenu(u.ID)); err != nil {
			return err
		}
	}
	for i, app := range apps {
		if i == pendingLimit {
			break
		}
		if err := c.Send(formatApplication(app), b.driverMenu(app.ID)); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) handleCallback(c tele.Context) error {
	action, id, ok := parseCallback(c.Callback().Data)
	if !ok {
		return c.Respond()
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		text string
		err  error
	)
	switch action {
	case actionApproveStudent:
		err = b.admin.ApproveStudent(ctx, id)
		text = "✅ Student approved"
	case actionApproveDriver, actionRejectDriver:
		if b.reviewerID == 0 {
			return c.Respond(&tele.CallbackResponse{Text: "No reviewer account configured", ShowAlert: true})
		}
		var status models.ApplicationStatus
		status, err = b.admin.ReviewDriver(ctx, models.ReviewDriverRequest{
			ApplicationID: id,
			AdminID:       b.reviewerID,
			Approved:      action == actionApproveDriver,
		})
		text = "Driver application " + string(status)
	}
	if err != nil {
		b.log.Error("admin action failed", logger.String("action", action), logger.Int64("id", id), logger.Error(err))
		return c.Respond(&tele.CallbackResponse{Text: "Error: " + err.Error(), ShowAlert: true})
	}

	if _, editErr := b.bot.Edit(c.Callback().Message, c.Callback().Message.Text+"\n\n"+text); editErr != nil {
		b.log.Warning("failed to edit admin message", logger.Error(editErr))
	}
	return c.Respond(&tele.CallbackResponse{Text: text})
}

func (b *Bot) studentMenu(userID int64) *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	menu.Inline(menu.Row(menu.Data("✅ Approve", callbackData(actionApproveStudent, userID))))
	return menu
}

func (b *Bot) driverMenu(appID int64) *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	if b.reviewerID == 0 {
		return menu
	}
	menu.Inline(menu.Row(
		menu.Data("✅ Approve", callbackData(actionApproveDriver, appID)),
		menu.Data("❌ Reject", callbackData(actionRejectDriver, appID)),
	))
	return menu
}

// StudentRegistered announces a new account waiting for verification.
func (b *Bot) StudentRegistered(u *models.User) {
	go b.notify(formatStudent(u), b.studentMenu(u.ID))
}

func (b *Bot) DriverApplied(app *models.DriverApplication, u *models.User) {
	notice := withApplicant(app, u)
	go b.notify(formatApplication(notice), b.driverMenu(notice.ID))
}

// withApplicant returns a copy of app carrying the applicant's profile. app
// belongs to the caller and is left untouched.
func withApplicant(app *models.DriverApplication, u *models.User) *models.DriverApplication {
	out := *app
	if u != nil {
		out.Username = u.Username
		out.Email = u.Email
		out.StudentID = u.StudentID
		out.University = u.University
	}
	return &out
}

func (b *Bot) notify(text string, menu *tele.ReplyMarkup) {
	if _, err := b.bot.Send(&tele.User{ID: b.chatID}, text, menu); err != nil {
		b.log.Warning("failed to notify admin", logger.Error(err))
	}
}
