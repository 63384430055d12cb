package jwt_test

import (
	"testing"

	"github.com/jhoicas/Facturacion-api/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateParse(t *testing.T) {
	token, err := jwt.Generate("s3cret", "user-1", "owner-1", "admin", "facturacion-api", 5)
	require.NoError(t, err)

	claims, err := jwt.Parse("s3cret", "facturacion-api", token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "owner-1", claims.OwnerID)
	assert.Equal(t, "admin", claims.Role)
}

func TestParse_Rechazos(t *testing.T) {
	token, err := jwt.Generate("s3cret", "user-1", "owner-1", "admin", "facturacion-api", 5)
	require.NoError(t, err)

	_, err = jwt.Parse("otro", "facturacion-api", token)
	assert.Error(t, err, "firma incorrecta")

	_, err = jwt.Parse("s3cret", "otro-emisor", token)
	assert.Error(t, err, "emisor distinto")

	expired, err := jwt.Generate("s3cret", "user-1", "owner-1", "admin", "facturacion-api", -1)
	require.NoError(t, err)
	_, err = jwt.Parse("s3cret", "", expired)
	assert.Error(t, err, "token expirado")

	noOwner, err := jwt.Generate("s3cret", "user-1", "", "admin", "facturacion-api", 5)
	require.NoError(t, err)
	_, err = jwt.Parse("s3cret", "", noOwner)
	assert.Error(t, err)

	_, err = jwt.Generate("", "user-1", "owner-1", "admin", "x", 5)
	assert.ErrorIs(t, err, jwt.ErrEmptySecret)
}
