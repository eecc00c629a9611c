package trademate

import (
	"context"

	"github.com/trademate-dev/trademate/internal/client"
	"github.com/trademate-dev/trademate/pkg/models"
)

// clientRemote and jobRemote adapt the API client to mutation.Remote.

type clientRemote struct{ api *client.Client }

func (r clientRemote) Create(ctx context.Context, c models.Client) (models.Client, error) {
	return r.api.CreateClient(ctx, c)
}

func (r clientRemote) Update(ctx context.Context, id int64, c models.Client) (models.Client, error) {
	return r.api.UpdateClient(ctx, id, c)
}

func (r clientRemote) Delete(ctx context.Context, id int64) error {
	return r.api.DeleteClient(ctx, id)
}

type jobRemote struct{ api *client.Client }

func (r jobRemote) Create(ctx context.Context, j models.Job) (models.Job, error) {
	return r.api.CreateJob(ctx, j)
}

func (r jobRemote) Update(ctx context.Context, id int64, j models.Job) (models.Job, error) {
	return r.api.UpdateJob(ctx, id, j)
}

func (r jobRemote) Delete(ctx context.Context, id int64) error {
	return r.api.DeleteJob(ctx, id)
}
