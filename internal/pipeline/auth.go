package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"csvharvest/internal/config"
)

// Authenticator fills in and submits the login form.
type Authenticator struct {
	// Settle is the fixed pause after the page load and after submitting.
	Settle time.Duration

	sleep sleepFunc
	log   *zap.Logger
}

// NewAuthenticator returns an Authenticator that pauses settle between steps.
func NewAuthenticator(settle time.Duration, log *zap.Logger) *Authenticator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Authenticator{Settle: settle, sleep: sleep, log: log}
}

// Login opens url and submits username and password through the form located
// by sel. It does not verify that the login succeeded; a wrong password only
// surfaces when navigation fails.
func (a *Authenticator) Login(ctx context.Context, s Session, url string, sel config.Selectors, username, password string) error {
	a.log.Info("opening login page", zap.String("url", url))
	if err := s.Navigate(ctx, url); err != nil {
		return classify(StageLogin, err, InteractionFailure)
	}

	// Racy: the fixed pause stands in for "form rendered".
	if err := a.sleep(ctx, a.Settle); err != nil {
		return classify(StageLogin, err, InteractionFailure)
	}

	if err := s.Input(ctx, sel.Username, username); err != nil {
		return classify(StageLogin, err, InteractionFailure)
	}
	if err := s.Input(ctx, sel.Password, password); err != nil {
		return classify(StageLogin, err, InteractionFailure)
	}
	if err := s.Click(ctx, sel.LoginButton); err != nil {
		return classify(StageLogin, err, InteractionFailure)
	}

	if err := a.sleep(ctx, a.Settle); err != nil {
		return classify(StageLogin, err, InteractionFailure)
	}
	a.log.Info("login submitted")
	return nil
}
