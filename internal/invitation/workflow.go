// Package invitation runs the cross-household invitation lifecycle.
// Invitations are addressed by email, so they work whether or not the
// recipient has ever signed in. Pending is the only persisted state: accept
// and reject both end by deleting the record.
package invitation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/hearthware/pantree/internal/email"
	"github.com/hearthware/pantree/internal/live"
	"github.com/hearthware/pantree/internal/model"
	"github.com/hearthware/pantree/internal/store"
)

// ErrDuplicateInvitation is surfaced when a pending invitation already
// exists for the same household and email.
var ErrDuplicateInvitation = store.ErrDuplicateInvitation

// ErrEmptyEmail reports a missing recipient address.
var ErrEmptyEmail = errors.New("recipient email is required")

type Workflow struct {
	invitations *store.InvitationStore
	households  *store.HouseholdStore
	mailer      *email.Client
	logger      *slog.Logger
}

// NewWorkflow creates the workflow. mailer may be nil or unconfigured;
// invitations then exist only in-app.
func NewWorkflow(invitations *store.InvitationStore, households *store.HouseholdStore, mailer *email.Client, logger *slog.Logger) *Workflow {
	return &Workflow{
		invitations: invitations,
		households:  households,
		mailer:      mailer,
		logger:      logger,
	}
}

// Send creates a pending invitation to householdID for toEmail.
func (w *Workflow) Send(ctx context.Context, fromUser, fromEmail, toEmail, householdID string) (*model.Invitation, error) {
	toEmail = strings.ToLower(strings.TrimSpace(toEmail))
	if toEmail == "" {
		return nil, ErrEmptyEmail
	}
	inv, err := w.invitations.Create(ctx, fromUser, fromEmail, toEmail, householdID)
	if err != nil {
		return nil, err
	}
	w.notify(inv)
	return inv, nil
}

// notify mails the recipient in the background. The invitation is already
// persisted and visible in-app; a failed mail delivery is only logged.
func (w *Workflow) notify(inv *model.Invitation) {
	if w.mailer == nil || !w.mailer.Configured() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		name := "your household"
		if h, err := w.households.GetByID(ctx, inv.HouseholdID); err == nil && h != nil {
			name = h.Name
		}
		if err := w.mailer.SendInvitation(inv.ToEmail, inv.FromEmail, name); err != nil {
			w.logger.Warn("invitation email failed", "to", inv.ToEmail, "error", err)
		}
	}()
}

// Accept adds userID to the household's member set and resolves the
// invitation by deleting it. Both steps are idempotent: the member add is a
// set union and deleting an absent invitation is a no-op, so a duplicate
// accept leaves the user a member exactly once.
func (w *Workflow) Accept(ctx context.Context, invitationID, userID, householdID string) error {
	if err := w.households.AddMember(ctx, householdID, userID); err != nil {
		return err
	}
	return w.invitations.Delete(ctx, invitationID)
}

// Reject resolves the invitation without touching membership.
func (w *Workflow) Reject(ctx context.Context, invitationID string) error {
	return w.invitations.Delete(ctx, invitationID)
}

// RemoveMember takes userID out of the household's member set. Removal is a
// single set-difference delete; there is no read-modify-write to race.
// Owner removal is not prevented here.
func (w *Workflow) RemoveMember(ctx context.Context, householdID, userID string) error {
	return w.households.RemoveMember(ctx, householdID, userID)
}

// Subscribe watches the pending invitations addressed to email.
func (w *Workflow) Subscribe(bus *live.Bus, email string, onChange func([]model.Invitation)) *live.Subscription {
	email = strings.ToLower(strings.TrimSpace(email))
	return live.Subscribe(bus, live.TopicInvitations, email,
		func(ctx context.Context) ([]model.Invitation, error) {
			return w.invitations.ListForEmail(ctx, email)
		},
		onChange,
		w.logger,
	)
}
