package workflows

import (
	"context"

	"github.com/PolarWolf314/diario/internal/audit"
	"github.com/PolarWolf314/diario/internal/tokens"
)

// ConnectDropbox starts the authorization flow and returns the URL the user
// must open. An empty appKey falls back to the stored key, then to
// config.toml.
//
// Returns ErrNoSession if the journal is locked.
// Returns ErrMissingAppKey if no app key is known.
func (j *Journal) ConnectDropbox(appKey string) (string, error) {
	if appKey == "" {
		appKey = j.tokens.AppKey()
	}
	if appKey == "" {
		appKey = j.config.Dropbox.AppKey
	}
	return j.tokens.Connect(appKey)
}

// CompleteDropbox finishes the flow with the redirect URL the user pasted
// back, or just its query string.
//
// Returns ErrStateMismatch if the redirect does not belong to this flow.
func (j *Journal) CompleteDropbox(ctx context.Context, redirect string) (tokens.Status, error) {
	if err := j.tokens.HandleRedirect(ctx, redirect); err != nil {
		j.trail.Log(audit.Entry{Operation: audit.OpConnect, Error: err.Error()})
		return j.tokens.Status(), err
	}
	status := j.tokens.Status()
	j.trail.Log(audit.Entry{Operation: audit.OpConnect, Account: status.Email})
	return status, nil
}

// DropboxStatus reports the connection. It works while locked.
func (j *Journal) DropboxStatus() tokens.Status {
	return j.tokens.Status()
}

// AcknowledgeDropboxStatus forgets the last authorization outcome once it
// has been shown.
func (j *Journal) AcknowledgeDropboxStatus() error {
	return j.tokens.ClearAuthResult()
}

// DisconnectDropbox forgets the tokens and sync state.
func (j *Journal) DisconnectDropbox() error {
	if err := j.tokens.Disconnect(); err != nil {
		return err
	}
	j.trail.Op(audit.OpDisconnect)
	return nil
}
