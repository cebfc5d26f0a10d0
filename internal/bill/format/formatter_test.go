package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatInvoiceNumber(t *testing.T) {
	number, err := FormatInvoiceNumber(2025, 7)
	require.NoError(t, err)
	assert.Equal(t, "2025007", number)

	number, err = FormatInvoiceNumber(2025, 123)
	require.NoError(t, err)
	assert.Equal(t, "2025123", number)

	// Sequences past three digits are not truncated.
	number, err = FormatInvoiceNumber(2026, 1042)
	require.NoError(t, err)
	assert.Equal(t, "20261042", number)
}

func TestFormatInvoiceNumberRejectsBadInput(t *testing.T) {
	_, err := FormatInvoiceNumber(2025, 0)
	assert.Error(t, err)

	_, err = FormatInvoiceNumber(2025, -3)
	assert.Error(t, err)

	_, err = FormatInvoiceNumber(99, 1)
	assert.Error(t, err)
}
