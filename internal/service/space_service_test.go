package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-studio-server/internal/model"
	"knowledge-studio-server/internal/repository"
	"knowledge-studio-server/pkg/util"
)

func newSpaceTestEnv(t *testing.T) *SpaceService {
	t.Helper()
	return NewSpaceService(repository.NewSpaceRepository(newTestDB(t)))
}

func TestCreateSpaceDefaults(t *testing.T) {
	svc := newSpaceTestEnv(t)

	space, err := svc.Create(context.Background(), &CreateSpaceRequest{Name: "  机器学习  "})
	require.NoError(t, err)
	assert.Equal(t, "机器学习", space.Name)
	assert.Equal(t, model.DefaultSpaceColor, space.Color)
	assert.NotEmpty(t, space.ID)
}

func TestCreateSpaceDuplicateName(t *testing.T) {
	svc := newSpaceTestEnv(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, &CreateSpaceRequest{Name: "机器学习"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, &CreateSpaceRequest{Name: "机器学习"})
	require.ErrorIs(t, err, ErrSpaceNameExists)
}

func TestCreateSpaceInvalidName(t *testing.T) {
	svc := newSpaceTestEnv(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, &CreateSpaceRequest{Name: "   "})
	require.ErrorIs(t, err, ErrSpaceNameInvalid)

	_, err = svc.Create(ctx, &CreateSpaceRequest{Name: strings.Repeat("a", 256)})
	require.ErrorIs(t, err, ErrSpaceNameInvalid)
}

func TestUpdateSpacePartialFields(t *testing.T) {
	svc := newSpaceTestEnv(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, &CreateSpaceRequest{Name: "机器学习"})
	require.NoError(t, err)

	// 只更新颜色，名称保持不变
	updated, err := svc.Update(ctx, created.ID, &UpdateSpaceRequest{Color: util.StringPtr("#ff0000")})
	require.NoError(t, err)
	assert.Equal(t, "机器学习", updated.Name)
	assert.Equal(t, "#ff0000", updated.Color)

	_, err = svc.Update(ctx, "no-such-id", &UpdateSpaceRequest{Color: util.StringPtr("#ff0000")})
	require.ErrorIs(t, err, ErrSpaceNotFound)
}

func TestDeleteSpace(t *testing.T) {
	svc := newSpaceTestEnv(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, &CreateSpaceRequest{Name: "机器学习"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	require.ErrorIs(t, svc.Delete(ctx, created.ID), ErrSpaceNotFound)

	spaces, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, spaces)
}
