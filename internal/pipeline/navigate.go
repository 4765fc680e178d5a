package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Navigator walks the menu path from the landing page to the export page.
type Navigator struct {
	Settle      time.Duration
	LinkTimeout time.Duration

	sleep sleepFunc
	log   *zap.Logger
}

// NewNavigator returns a Navigator. linkTimeout bounds the only adaptive
// wait, the one for the export page link.
func NewNavigator(settle, linkTimeout time.Duration, log *zap.Logger) *Navigator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Navigator{Settle: settle, LinkTimeout: linkTimeout, sleep: sleep, log: log}
}

// NavigateToExportPage opens the dropdown, picks the submenu entry and
// follows the link whose visible text is linkText.
func (n *Navigator) NavigateToExportPage(ctx context.Context, s Session, dropdown, submenu, linkText string) error {
	// The fixed pauses below verify nothing; a slow page still races them.
	if err := n.sleep(ctx, n.Settle); err != nil {
		return classify(StageNavigate, err, InteractionFailure)
	}
	if err := s.Click(ctx, dropdown); err != nil {
		return classify(StageNavigate, err, InteractionFailure)
	}
	n.log.Debug("dropdown opened", zap.String("selector", dropdown))

	if err := n.sleep(ctx, n.Settle); err != nil {
		return classify(StageNavigate, err, InteractionFailure)
	}
	if err := s.Click(ctx, submenu); err != nil {
		return classify(StageNavigate, err, InteractionFailure)
	}
	n.log.Debug("submenu selected", zap.String("selector", submenu))

	if err := s.WaitLinkClickable(ctx, linkText, n.LinkTimeout); err != nil {
		return classify(StageNavigate, err, InteractionFailure)
	}
	if err := s.ClickLink(ctx, linkText); err != nil {
		return classify(StageNavigate, err, InteractionFailure)
	}

	if err := n.sleep(ctx, n.Settle); err != nil {
		return classify(StageNavigate, err, InteractionFailure)
	}
	n.log.Info("reached export page", zap.String("link", linkText))
	return nil
}
