package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/equiply/workflow-service/internal/config"
	"github.com/equiply/workflow-service/internal/domain"
	"github.com/equiply/workflow-service/internal/repository"
	"github.com/equiply/workflow-service/internal/repository/memory"
	apperrors "github.com/equiply/workflow-service/pkg/util/errorutil"
)

var testAuthConfig = config.AuthConfig{
	JWTSecret:             "test-secret",
	AccessTokenTTLMinutes: 15,
	BcryptCost:            bcrypt.MinCost,
}

// lateRegistrationUsers sees no account during the email lookup, then loses
// the insert to a registration that committed in between.
type lateRegistrationUsers struct {
	repository.UserRepository
}

func (u *lateRegistrationUsers) GetByEmail(context.Context, string) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}

func (u *lateRegistrationUsers) Create(context.Context, *domain.User) error {
	return fmt.Errorf("%w: users_email_key", repository.ErrDuplicate)
}

func TestRegisterUserLosingEmailRaceConflicts(t *testing.T) {
	users := &lateRegistrationUsers{UserRepository: memory.NewStore().Repositories().Users}
	svc := NewAuthService(testAuthConfig, users, nil)

	_, err := svc.RegisterUser(context.Background(), "Dana", "dana@example.com", "correct-horse")
	requireCode(t, err, apperrors.CodeConflict)
}

func TestRegisterUserNormalisesEmail(t *testing.T) {
	svc := NewAuthService(testAuthConfig, memory.NewStore().Repositories().Users, nil)
	ctx := context.Background()

	result, err := svc.RegisterUser(ctx, "Dana", "  Dana@Example.COM ", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "dana@example.com", result.User.Email)
	assert.Equal(t, domain.RoleUser, result.User.Role)
	assert.NotEmpty(t, result.AccessToken)

	_, err = svc.RegisterUser(ctx, "Dana again", "dana@example.com", "correct-horse")
	requireCode(t, err, apperrors.CodeConflict)
}
