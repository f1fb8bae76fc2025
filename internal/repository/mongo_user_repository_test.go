package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"userhub/internal/model"
)

func TestUserDocument_StoresIDAsString(t *testing.T) {
	user := &model.User{
		ID:           uuid.New(),
		Name:         "Alice",
		Email:        "alice@example.com",
		PasswordHash: "hash",
		CreatedAt:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	raw, err := bson.Marshal(toDocument(user))
	require.NoError(t, err)

	id, ok := bson.Raw(raw).Lookup("_id").StringValueOK()
	require.True(t, ok)
	assert.Equal(t, user.ID.String(), id)
	assert.Equal(t, "hash", bson.Raw(raw).Lookup("password_hash").StringValue())
	assert.False(t, bson.Raw(raw).Lookup("deleted").Boolean())
}

func TestUserDocument_ToModelRejectsBadID(t *testing.T) {
	_, err := userDocument{ID: "not-a-uuid"}.toModel()
	assert.Error(t, err)
}
