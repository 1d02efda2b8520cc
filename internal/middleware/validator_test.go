package middleware

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pulsemsp/pulse/internal/domain/entities"
)

func TestValidateID(t *testing.T) {
	require.NoError(t, ValidateID("3e9bdca8-4f3e-4f62-9d41-0a6d9f3f2b11"))
	require.NoError(t, ValidateID("3E9BDCA8-4F3E-4F62-9D41-0A6D9F3F2B11"))
	require.Error(t, ValidateID(""))
	require.Error(t, ValidateID("not-a-uuid"))
	require.Error(t, ValidateID("3e9bdca84f3e4f629d410a6d9f3f2b11"))
}

func TestValidateTenantID(t *testing.T) {
	require.NoError(t, ValidateTenantID("acme-msp_01"))
	require.Error(t, ValidateTenantID(""))
	require.Error(t, ValidateTenantID("bad tenant"))
	require.Error(t, ValidateTenantID("a/b"))
}

func TestValidateVendors(t *testing.T) {
	out, err := ValidateVendors([]string{"cwpsa", " Immy ", "M365"})
	require.NoError(t, err)
	require.Equal(t, []entities.Source{entities.SourceCWPSA, entities.SourceImmy, entities.SourceM365}, out)

	out, err = ValidateVendors(nil)
	require.NoError(t, err)
	require.Empty(t, out)

	_, err = ValidateVendors([]string{"datto"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid vendor")
}

func TestValidatePagination(t *testing.T) {
	page, size, err := ValidatePagination("", "")
	require.NoError(t, err)
	require.Equal(t, 1, page)
	require.Equal(t, 20, size)

	page, size, err = ValidatePagination("3", "50")
	require.NoError(t, err)
	require.Equal(t, 3, page)
	require.Equal(t, 50, size)

	_, size, err = ValidatePagination("1", "500")
	require.NoError(t, err)
	require.Equal(t, 100, size)

	_, _, err = ValidatePagination("0", "10")
	require.Error(t, err)

	_, _, err = ValidatePagination("x", "10")
	require.Error(t, err)
}

func TestValidateLimit(t *testing.T) {
	require.Equal(t, 20, ValidateLimit(0))
	require.Equal(t, 100, ValidateLimit(250))
	require.Equal(t, 5, ValidateLimit(5))
}
