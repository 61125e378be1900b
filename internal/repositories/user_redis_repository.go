package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sweetshop/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	userKeyPrefix      = "user:"
	userEmailKeyPrefix = "user:email:"
)

// KEYS[1] email claim, KEYS[2] user hash. ARGV[1] id, ARGV[2..] field/value pairs.
var createUserScript = redis.NewScript(`
if redis.call('SETNX', KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[2], unpack(ARGV, 2))
return 1
`)

// RedisUserRepository stores each identity in a hash and claims its email with a separate key,
// so instances sharing one Redis agree on email uniqueness.
type RedisUserRepository struct {
	client *redis.Client
}

// NewRedisUserRepository creates a new instance of RedisUserRepository.
func NewRedisUserRepository(client *redis.Client) *RedisUserRepository {
	return &RedisUserRepository{client: client}
}

func userKey(id string) string {
	return userKeyPrefix + id
}

func userEmailKey(email string) string {
	return userEmailKeyPrefix + email
}

// Create claims the email and stores the user in one script.
func (r *RedisUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	args := []interface{}{
		user.ID,
		"id", user.ID,
		"email", user.Email,
		"password", user.Password,
		"role", string(user.Role),
		"created_at", now.Format(time.RFC3339Nano),
		"updated_at", now.Format(time.RFC3339Nano),
	}
	created, err := createUserScript.Run(ctx, r.client, []string{userEmailKey(user.Email), userKey(user.ID)}, args...).Int()
	if err != nil {
		return storeError("create user", err)
	}
	if created == 0 {
		return fmt.Errorf("email '%s' already registered: %w", user.Email, models.ErrConflict)
	}
	return nil
}

// GetByEmail resolves the email claim and loads the user it points to.
func (r *RedisUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	id, err := r.client.Get(ctx, userEmailKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("user with email %s: %w", email, models.ErrNotFound)
	}
	if err != nil {
		return nil, storeError(fmt.Sprintf("get user by email %s", email), err)
	}
	return r.GetByID(ctx, id)
}

// GetByID loads a user hash.
func (r *RedisUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	fields, err := r.client.HGetAll(ctx, userKey(id)).Result()
	if err != nil {
		return nil, storeError(fmt.Sprintf("get user by ID %s", id), err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("user with ID %s: %w", id, models.ErrNotFound)
	}
	createdAt, _ := time.Parse(time.RFC3339Nano, fields["created_at"])
	updatedAt, _ := time.Parse(time.RFC3339Nano, fields["updated_at"])
	return &models.User{
		ID:        fields["id"],
		Email:     fields["email"],
		Password:  fields["password"],
		Role:      models.Role(fields["role"]),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}
