package notify

import (
	"context"

	"roomguard/internal/model"
	"roomguard/internal/storage"
)

// Archive adapts the alert archive into a sink so persistence I/O rides the
// async dispatch path, never the recording path.
type Archive struct {
	store storage.Store
}

func NewArchive(store storage.Store) Sink {
	if store == nil {
		return nil
	}
	return &Archive{store: store}
}

func (a *Archive) Name() string { return "archive" }

func (a *Archive) Send(ctx context.Context, alert model.Alert) error {
	return a.store.SaveAlert(ctx, alert)
}

func (a *Archive) Close() error {
	return a.store.Close()
}
